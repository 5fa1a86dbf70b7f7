package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// Error classes returned in the "error" field of error bodies.
const (
	ClassBadRequest      = "bad_request"
	ClassMissingField    = "missing_field"
	ClassTypeMismatch    = "type_mismatch"
	ClassConflict        = "conflict"
	ClassNotFound        = "not_found"
	ClassInvalidFilter   = "invalid_filter"
	ClassFilterConflict  = "filter_conflict"
	ClassUnparsedQuery   = "unparsed_query"
	ClassPayloadTooLarge = "payload_too_large"
	ClassUnavailable     = "unavailable"
	ClassInternal        = "internal"
)

const unparsedHint = `Try phrases such as "single word palindromic strings", ` +
	`"strings longer than 10 characters" or "strings containing the letter z".`

var errBadRequest = errors.New("malformed request body")

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// errorStatus maps err onto an HTTP status and error class.
func errorStatus(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, ClassPayloadTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ClassBadRequest
	case errors.Is(err, domain.ErrMissingField):
		return http.StatusBadRequest, ClassMissingField
	case errors.Is(err, domain.ErrTypeMismatch):
		return http.StatusUnprocessableEntity, ClassTypeMismatch
	case errors.Is(err, domain.ErrRecordExists):
		return http.StatusConflict, ClassConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ClassNotFound
	case errors.Is(err, domain.ErrInvalidFilter):
		return http.StatusBadRequest, ClassInvalidFilter
	case errors.Is(err, domain.ErrFilterConflict):
		return http.StatusUnprocessableEntity, ClassFilterConflict
	case errors.Is(err, domain.ErrUnparsed):
		return http.StatusBadRequest, ClassUnparsedQuery
	default:
		return http.StatusInternalServerError, ClassInternal
	}
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal","message":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes the error body for err. Internal errors are logged
// and their text is not exposed.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code, class := errorStatus(err)
	body := ErrorResponse{Error: class, Message: err.Error()}
	switch class {
	case ClassInternal:
		logger.Error("request failed", "error", err)
		body.Message = "internal server error"
	case ClassUnparsedQuery:
		body.Hint = unparsedHint
	}
	respondWithJSON(w, logger, code, body)
}
