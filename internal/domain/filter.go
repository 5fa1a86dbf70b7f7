package domain

import (
	"fmt"
	"unicode/utf8"
)

// FilterSet is a structured set of constraints used to select records.
// A nil field is unconstrained; an empty FilterSet matches every record.
type FilterSet struct {
	IsPalindrome      *bool   `json:"is_palindrome,omitempty"`
	MinLength         *int    `json:"min_length,omitempty"`
	MaxLength         *int    `json:"max_length,omitempty"`
	WordCount         *int    `json:"word_count,omitempty"`
	ContainsCharacter *string `json:"contains_character,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f FilterSet) IsEmpty() bool {
	return f.IsPalindrome == nil && f.MinLength == nil && f.MaxLength == nil &&
		f.WordCount == nil && f.ContainsCharacter == nil
}

// Validate checks the invariants of a filter set. Shape problems (a
// contains_character that is not exactly one character, a negative word count)
// return ErrInvalidFilter; bounds that cannot be satisfied together return
// ErrFilterConflict.
func (f FilterSet) Validate() error {
	if f.ContainsCharacter != nil && utf8.RuneCountInString(*f.ContainsCharacter) != 1 {
		return fmt.Errorf("%w: contains_character must be exactly one character", ErrInvalidFilter)
	}
	if f.WordCount != nil && *f.WordCount < 0 {
		return fmt.Errorf("%w: word_count must be non-negative", ErrInvalidFilter)
	}
	if f.MinLength != nil && *f.MinLength < 0 {
		return fmt.Errorf("%w: min_length %d is negative", ErrFilterConflict, *f.MinLength)
	}
	if f.MaxLength != nil && *f.MaxLength < 0 {
		return fmt.Errorf("%w: max_length %d is negative", ErrFilterConflict, *f.MaxLength)
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return fmt.Errorf("%w: min_length %d is greater than max_length %d", ErrFilterConflict, *f.MinLength, *f.MaxLength)
	}
	return nil
}

// Bool returns a pointer to v, for building filter sets.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for building filter sets.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building filter sets.
func String(v string) *string { return &v }
