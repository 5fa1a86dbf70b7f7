// Package filter evaluates structured filter sets against analyzed records.
package filter

import (
	"strings"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// Apply returns the records that satisfy every constraint in fs, preserving
// input order. fs is assumed to be validated; Apply never fails and returns an
// empty, non-nil slice when nothing matches.
func Apply(fs domain.FilterSet, records []domain.AnalyzedRecord) []domain.AnalyzedRecord {
	matched := make([]domain.AnalyzedRecord, 0, len(records))
	for _, rec := range records {
		if Matches(fs, rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// Matches reports whether rec satisfies every constraint in fs.
// contains_character is matched case-sensitively against the stored value.
func Matches(fs domain.FilterSet, rec domain.AnalyzedRecord) bool {
	p := rec.Properties
	if fs.IsPalindrome != nil && p.IsPalindrome != *fs.IsPalindrome {
		return false
	}
	if fs.MinLength != nil && p.Length < *fs.MinLength {
		return false
	}
	if fs.MaxLength != nil && p.Length > *fs.MaxLength {
		return false
	}
	if fs.WordCount != nil && p.WordCount != *fs.WordCount {
		return false
	}
	if fs.ContainsCharacter != nil && !strings.Contains(rec.Value, *fs.ContainsCharacter) {
		return false
	}
	return true
}
