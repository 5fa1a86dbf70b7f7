package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/V4T54L/string-analyzer/internal/domain"
	"github.com/V4T54L/string-analyzer/internal/usecase"
)

// StringService is the subset of usecase.StringService the handler needs.
type StringService interface {
	Create(ctx context.Context, value string) (domain.AnalyzedRecord, error)
	Get(ctx context.Context, value string) (domain.AnalyzedRecord, error)
	Delete(ctx context.Context, value string) (domain.AnalyzedRecord, error)
	List(ctx context.Context, fs domain.FilterSet) ([]domain.AnalyzedRecord, error)
	ListByNaturalLanguage(ctx context.Context, query string) (usecase.Interpretation, []domain.AnalyzedRecord, error)
	Count() int
}

// ListResponse is the body of GET /strings.
type ListResponse struct {
	Data           []domain.AnalyzedRecord `json:"data"`
	Count          int                     `json:"count"`
	FiltersApplied domain.FilterSet        `json:"filters_applied"`
}

// NaturalLanguageResponse is the body of GET /strings/filter-by-natural-language.
type NaturalLanguageResponse struct {
	Data             []domain.AnalyzedRecord `json:"data"`
	Count            int                     `json:"count"`
	InterpretedQuery usecase.Interpretation  `json:"interpreted_query"`
}

// StringHandler handles the /strings resource.
type StringHandler struct {
	svc         StringService
	logger      *slog.Logger
	maxBodySize int64
}

// NewStringHandler creates a new StringHandler.
func NewStringHandler(svc StringService, logger *slog.Logger, maxBodySize int64) *StringHandler {
	return &StringHandler{
		svc:         svc,
		logger:      logger.With("component", "string_handler"),
		maxBodySize: maxBodySize,
	}
}

// Create handles POST /strings.
func (h *StringHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	value, err := decodeValue(r.Body)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	rec, err := h.svc.Create(r.Context(), value)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, rec)
}

// Get handles GET /strings/{value}.
func (h *StringHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("value"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /strings/{value}.
func (h *StringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Delete(r.Context(), r.PathValue("value")); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /strings with structured filter parameters.
func (h *StringHandler) List(w http.ResponseWriter, r *http.Request) {
	fs, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	recs, err := h.svc.List(r.Context(), fs)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, ListResponse{Data: recs, Count: len(recs), FiltersApplied: fs})
}

// FilterByNaturalLanguage handles GET /strings/filter-by-natural-language.
func (h *StringHandler) FilterByNaturalLanguage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		h.respondWithError(w, fmt.Errorf("%w: query", domain.ErrMissingField))
		return
	}

	interp, recs, err := h.svc.ListByNaturalLanguage(r.Context(), query)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, NaturalLanguageResponse{Data: recs, Count: len(recs), InterpretedQuery: interp})
}

// Health handles GET /health on the public server.
func (h *StringHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": h.svc.Count()})
}

// decodeValue extracts the "value" member of a JSON object body.
func decodeValue(body io.Reader) (string, error) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if payload == nil {
		return "", fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}

	raw, ok := payload["value"]
	if !ok {
		return "", fmt.Errorf("%w: value", domain.ErrMissingField)
	}

	var value string
	if string(raw) == "null" {
		return "", fmt.Errorf("%w: value must be a string, got null", domain.ErrTypeMismatch)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%w: value must be a string", domain.ErrTypeMismatch)
	}
	return value, nil
}

// ParseFilterParams converts structured query parameters into a filter set.
// Absent parameters stay unconstrained. Malformed values yield ErrInvalidFilter;
// contradictory bounds are left for FilterSet.Validate.
func ParseFilterParams(q url.Values) (domain.FilterSet, error) {
	var fs domain.FilterSet

	if q.Has("is_palindrome") {
		switch v := q.Get("is_palindrome"); v {
		case "true":
			fs.IsPalindrome = domain.Bool(true)
		case "false":
			fs.IsPalindrome = domain.Bool(false)
		default:
			return fs, fmt.Errorf("%w: is_palindrome must be true or false, got %q", domain.ErrInvalidFilter, v)
		}
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"min_length", &fs.MinLength},
		{"max_length", &fs.MaxLength},
		{"word_count", &fs.WordCount},
	}
	for _, p := range ints {
		if !q.Has(p.name) {
			continue
		}
		n, err := strconv.Atoi(q.Get(p.name))
		if err != nil || n < 0 {
			return fs, fmt.Errorf("%w: %s must be a non-negative integer, got %q", domain.ErrInvalidFilter, p.name, q.Get(p.name))
		}
		*p.dst = domain.Int(n)
	}

	if q.Has("contains_character") {
		fs.ContainsCharacter = domain.String(q.Get("contains_character"))
	}

	return fs, fs.Validate()
}

func (h *StringHandler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	respondWithJSON(w, h.logger, code, payload)
}

func (h *StringHandler) respondWithError(w http.ResponseWriter, err error) {
	respondWithError(w, h.logger, err)
}
