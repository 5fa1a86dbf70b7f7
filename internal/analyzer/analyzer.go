// Package analyzer derives the fixed set of string properties stored with
// every record.
package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// Analyze computes the properties of value. It never fails; the empty string
// is a zero-length palindrome with no words.
func Analyze(value string) domain.Properties {
	freq := make(map[string]int)
	for _, r := range value {
		freq[string(r)]++
	}

	return domain.Properties{
		Length:             utf8.RuneCountInString(value),
		IsPalindrome:       IsPalindrome(value),
		UniqueCharacters:   len(freq),
		WordCount:          len(strings.Fields(value)),
		ContentHash:        Hash(value),
		CharacterFrequency: freq,
	}
}

// Hash returns the lower-case hex SHA-256 digest of value's bytes.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// IsPalindrome reports whether value reads the same reversed after Unicode
// case folding. Spaces and punctuation are compared like any other character.
func IsPalindrome(value string) bool {
	runes := []rune(cases.Fold().String(value))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		if runes[i] != runes[j] {
			return false
		}
	}
	return true
}
