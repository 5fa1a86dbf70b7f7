package domain

import "errors"

// Error classes surfaced to API clients. Wrap them with fmt.Errorf("%w: ...")
// to attach details; the HTTP layer maps them with errors.Is.
var (
	ErrMissingField   = errors.New("missing required field")
	ErrTypeMismatch   = errors.New("field has the wrong type")
	ErrRecordExists   = errors.New("string already exists")
	ErrNotFound       = errors.New("string not found")
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrUnparsed       = errors.New("unable to parse natural language query")
	ErrFilterConflict = errors.New("query parsed but resulted in conflicting filters")
)
