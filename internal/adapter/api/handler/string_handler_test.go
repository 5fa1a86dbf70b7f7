package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/string-analyzer/internal/adapter/repository/memory"
	"github.com/V4T54L/string-analyzer/internal/domain"
	"github.com/V4T54L/string-analyzer/internal/usecase"
)

func newTestMux(t *testing.T, maxBody int64, seed ...string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := usecase.NewStringService(memory.NewRecordStore(), nil, logger)
	for _, v := range seed {
		_, err := svc.Create(context.Background(), v)
		require.NoError(t, err)
	}

	h := NewStringHandler(svc, logger, maxBody)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /strings", h.Create)
	mux.HandleFunc("GET /strings", h.List)
	mux.HandleFunc("GET /strings/filter-by-natural-language", h.FilterByNaturalLanguage)
	mux.HandleFunc("GET /strings/{value}", h.Get)
	mux.HandleFunc("DELETE /strings/{value}", h.Delete)
	mux.HandleFunc("GET /health", h.Health)
	return mux
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestStringHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		maxBody        int64
		expectedStatus int
		expectedClass  string
	}{
		{name: "Valid", body: `{"value": "racecar"}`, expectedStatus: http.StatusCreated},
		{name: "Empty String", body: `{"value": ""}`, expectedStatus: http.StatusCreated},
		{name: "Duplicate", body: `{"value": "existing"}`, expectedStatus: http.StatusConflict, expectedClass: ClassConflict},
		{name: "Missing Value", body: `{"other": "x"}`, expectedStatus: http.StatusBadRequest, expectedClass: ClassMissingField},
		{name: "Null Value", body: `{"value": null}`, expectedStatus: http.StatusUnprocessableEntity, expectedClass: ClassTypeMismatch},
		{name: "Number Value", body: `{"value": 42}`, expectedStatus: http.StatusUnprocessableEntity, expectedClass: ClassTypeMismatch},
		{name: "Array Value", body: `{"value": ["a"]}`, expectedStatus: http.StatusUnprocessableEntity, expectedClass: ClassTypeMismatch},
		{name: "Bad JSON", body: `{"value": "hello"`, expectedStatus: http.StatusBadRequest, expectedClass: ClassBadRequest},
		{name: "Empty Body", body: ``, expectedStatus: http.StatusBadRequest, expectedClass: ClassBadRequest},
		{name: "Not An Object", body: `"hello"`, expectedStatus: http.StatusBadRequest, expectedClass: ClassBadRequest},
		{name: "Null Body", body: `null`, expectedStatus: http.StatusBadRequest, expectedClass: ClassBadRequest},
		{
			name:           "Payload Too Large",
			body:           `{"value": "this payload is definitely too large for the test limit"}`,
			maxBody:        20,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedClass:  ClassPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxBody := tt.maxBody
			if maxBody == 0 {
				maxBody = 1024
			}
			mux := newTestMux(t, maxBody, "existing")

			req := httptest.NewRequest(http.MethodPost, "/strings", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.expectedClass != "" {
				assert.Equal(t, tt.expectedClass, decodeError(t, rr.Body.Bytes()).Error)
			}
		})
	}
}

func TestStringHandler_CreateResponseBody(t *testing.T) {
	mux := newTestMux(t, 1024)

	req := httptest.NewRequest(http.MethodPost, "/strings", bytes.NewBufferString(`{"value": "A man a plan"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var rec domain.AnalyzedRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "A man a plan", rec.Value)
	assert.Equal(t, rec.Properties.ContentHash, rec.ID)
	assert.Equal(t, 12, rec.Properties.Length)
	assert.Equal(t, 4, rec.Properties.WordCount)
	assert.Equal(t, 3, rec.Properties.CharacterFrequency[" "])
	assert.False(t, rec.CreatedAt.IsZero())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Contains(t, raw, "created_at")
	props := raw["properties"].(map[string]any)
	for _, key := range []string{"length", "is_palindrome", "unique_characters", "word_count", "content_hash", "character_frequency"} {
		assert.Contains(t, props, key)
	}
}

func TestStringHandler_GetAndDelete(t *testing.T) {
	mux := newTestMux(t, 1024, "hello world")

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"Get Existing", http.MethodGet, "/strings/" + url.PathEscape("hello world"), http.StatusOK},
		{"Get Is Case Sensitive", http.MethodGet, "/strings/" + url.PathEscape("Hello World"), http.StatusNotFound},
		{"Get Missing", http.MethodGet, "/strings/nope", http.StatusNotFound},
		{"Delete Missing", http.MethodDelete, "/strings/nope", http.StatusNotFound},
		{"Delete Existing", http.MethodDelete, "/strings/" + url.PathEscape("hello world"), http.StatusNoContent},
		{"Get After Delete", http.MethodGet, "/strings/" + url.PathEscape("hello world"), http.StatusNotFound},
		{"Delete Twice", http.MethodDelete, "/strings/" + url.PathEscape("hello world"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			switch rr.Code {
			case http.StatusNoContent:
				assert.Empty(t, rr.Body.String())
			case http.StatusNotFound:
				assert.Equal(t, ClassNotFound, decodeError(t, rr.Body.Bytes()).Error)
			}
		})
	}
}

func TestStringHandler_List(t *testing.T) {
	mux := newTestMux(t, 1024, "racecar", "hello world", "level", "banana")

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedClass  string
		expectedValues []string
	}{
		{name: "No Filters", query: "", expectedStatus: http.StatusOK, expectedValues: []string{"racecar", "hello world", "level", "banana"}},
		{name: "Palindromes", query: "is_palindrome=true", expectedStatus: http.StatusOK, expectedValues: []string{"racecar", "level"}},
		{name: "Non Palindromes", query: "is_palindrome=false", expectedStatus: http.StatusOK, expectedValues: []string{"hello world", "banana"}},
		{name: "Length Window", query: "min_length=6&max_length=7", expectedStatus: http.StatusOK, expectedValues: []string{"racecar", "banana"}},
		{name: "Word Count", query: "word_count=2", expectedStatus: http.StatusOK, expectedValues: []string{"hello world"}},
		{name: "Contains Character", query: "contains_character=n", expectedStatus: http.StatusOK, expectedValues: []string{"banana"}},
		{name: "Combined", query: "is_palindrome=true&contains_character=v", expectedStatus: http.StatusOK, expectedValues: []string{"level"}},
		{name: "No Match", query: "min_length=100", expectedStatus: http.StatusOK, expectedValues: []string{}},
		{name: "Bad Bool", query: "is_palindrome=yes", expectedStatus: http.StatusBadRequest, expectedClass: ClassInvalidFilter},
		{name: "Bad Int", query: "min_length=abc", expectedStatus: http.StatusBadRequest, expectedClass: ClassInvalidFilter},
		{name: "Negative Int", query: "word_count=-1", expectedStatus: http.StatusBadRequest, expectedClass: ClassInvalidFilter},
		{name: "Multi Rune Character", query: "contains_character=ab", expectedStatus: http.StatusBadRequest, expectedClass: ClassInvalidFilter},
		{name: "Empty Character", query: "contains_character=", expectedStatus: http.StatusBadRequest, expectedClass: ClassInvalidFilter},
		{name: "Min Above Max", query: "min_length=10&max_length=2", expectedStatus: http.StatusUnprocessableEntity, expectedClass: ClassFilterConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/strings?"+tt.query, nil))
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			if tt.expectedClass != "" {
				assert.Equal(t, tt.expectedClass, decodeError(t, rr.Body.Bytes()).Error)
				return
			}

			var resp ListResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			values := make([]string, 0, len(resp.Data))
			for _, rec := range resp.Data {
				values = append(values, rec.Value)
			}
			assert.Equal(t, tt.expectedValues, values)
			assert.Equal(t, len(tt.expectedValues), resp.Count)
		})
	}
}

func TestStringHandler_ListEchoesFilters(t *testing.T) {
	mux := newTestMux(t, 1024, "racecar")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/strings?is_palindrome=true&min_length=3&ignored=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		FiltersApplied map[string]any `json:"filters_applied"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"is_palindrome": true, "min_length": float64(3)}, resp.FiltersApplied)
}

func TestStringHandler_FilterByNaturalLanguage(t *testing.T) {
	mux := newTestMux(t, 1024, "racecar", "noon", "hello world", "zebra", "level up")

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedClass  string
		expectedValues []string
	}{
		{name: "Single Word Palindromes", query: "all single word palindromic strings", expectedStatus: http.StatusOK, expectedValues: []string{"racecar", "noon"}},
		{name: "Longer Than", query: "strings longer than 7 characters", expectedStatus: http.StatusOK, expectedValues: []string{"hello world", "level up"}},
		{name: "Contains Letter", query: "strings containing the letter z", expectedStatus: http.StatusOK, expectedValues: []string{"zebra"}},
		{name: "Two Words", query: "two word strings", expectedStatus: http.StatusOK, expectedValues: []string{"hello world", "level up"}},
		{name: "Missing Query", query: "", expectedStatus: http.StatusBadRequest, expectedClass: ClassMissingField},
		{name: "Blank Query", query: "   ", expectedStatus: http.StatusBadRequest, expectedClass: ClassMissingField},
		{name: "Unparsed", query: "tell me a joke", expectedStatus: http.StatusBadRequest, expectedClass: ClassUnparsedQuery},
		{name: "Conflict", query: "between 10 and 5 characters", expectedStatus: http.StatusUnprocessableEntity, expectedClass: ClassFilterConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/strings/filter-by-natural-language?query=" + url.QueryEscape(tt.query)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			if tt.expectedClass != "" {
				errResp := decodeError(t, rr.Body.Bytes())
				assert.Equal(t, tt.expectedClass, errResp.Error)
				if tt.expectedClass == ClassUnparsedQuery {
					assert.NotEmpty(t, errResp.Hint)
				}
				return
			}

			var resp NaturalLanguageResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.query, resp.InterpretedQuery.Original)
			assert.False(t, resp.InterpretedQuery.ParsedFilters.IsEmpty())
			values := make([]string, 0, len(resp.Data))
			for _, rec := range resp.Data {
				values = append(values, rec.Value)
			}
			assert.Equal(t, tt.expectedValues, values)
			assert.Equal(t, len(tt.expectedValues), resp.Count)
		})
	}
}

func TestStringHandler_Health(t *testing.T) {
	mux := newTestMux(t, 1024, "one", "two")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","records":2}`, rr.Body.String())
}

func TestParseFilterParams(t *testing.T) {
	fs, err := ParseFilterParams(url.Values{"min_length": {"0"}, "contains_character": {"é"}})
	require.NoError(t, err)
	assert.Equal(t, domain.Int(0), fs.MinLength)
	assert.Equal(t, domain.String("é"), fs.ContainsCharacter)
	assert.Nil(t, fs.MaxLength)
}
