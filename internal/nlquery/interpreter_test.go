package nlquery

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

func TestInterpret(t *testing.T) {
	interp := New()

	tests := []struct {
		query   string
		want    domain.FilterSet
		matched []string
	}{
		{
			query:   "all single word palindromic strings",
			want:    domain.FilterSet{WordCount: domain.Int(1), IsPalindrome: domain.Bool(true)},
			matched: []string{"palindrome", "single_word"},
		},
		{
			query:   "strings longer than 5 characters",
			want:    domain.FilterSet{MinLength: domain.Int(6)},
			matched: []string{"longer_than"},
		},
		{
			query:   "strings shorter than 10",
			want:    domain.FilterSet{MaxLength: domain.Int(9)},
			matched: []string{"shorter_than"},
		},
		{
			query:   "strings with exactly 7 characters",
			want:    domain.FilterSet{MinLength: domain.Int(7), MaxLength: domain.Int(7)},
			matched: []string{"exactly"},
		},
		{
			query:   "between 3 and 8 characters",
			want:    domain.FilterSet{MinLength: domain.Int(3), MaxLength: domain.Int(8)},
			matched: []string{"between"},
		},
		{
			query:   "strings containing the letter z",
			want:    domain.FilterSet{ContainsCharacter: domain.String("z")},
			matched: []string{"contains_letter"},
		},
		{
			query:   "Strings that CONTAIN the letter 'Q' please",
			want:    domain.FilterSet{ContainsCharacter: domain.String("q")},
			matched: []string{"contains_letter"},
		},
		{
			query:   "palindromic strings that contain the first vowel",
			want:    domain.FilterSet{IsPalindrome: domain.Bool(true), ContainsCharacter: domain.String("a")},
			matched: []string{"palindrome", "first_vowel"},
		},
		{
			query:   "two word strings",
			want:    domain.FilterSet{WordCount: domain.Int(2)},
			matched: []string{"two_words"},
		},
		{
			query:   "non-palindromic strings",
			want:    domain.FilterSet{IsPalindrome: domain.Bool(false)},
			matched: []string{"palindrome", "non_palindrome"},
		},
		{
			query:   "strings that are not palindromes",
			want:    domain.FilterSet{IsPalindrome: domain.Bool(false)},
			matched: []string{"palindrome", "non_palindrome"},
		},
		{
			query:   "at least 4 characters and at most 9 characters",
			want:    domain.FilterSet{MinLength: domain.Int(4), MaxLength: domain.Int(9)},
			matched: []string{"at_least", "at_most"},
		},
		{
			query:   "  one   word\tstrings  ",
			want:    domain.FilterSet{WordCount: domain.Int(1)},
			matched: []string{"single_word"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := interp.Interpret(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Filters)
			assert.Equal(t, tt.matched, res.Matched)
		})
	}
}

func TestInterpret_LaterRuleWinsOnSameKey(t *testing.T) {
	res, err := New().Interpret("longer than 3 characters between 5 and 10 characters")
	require.NoError(t, err)

	assert.Equal(t, domain.FilterSet{MinLength: domain.Int(5), MaxLength: domain.Int(10)}, res.Filters)
	assert.Equal(t, []string{"longer_than", "between"}, res.Matched)
}

func TestInterpret_ConflictIsNotResolved(t *testing.T) {
	res, err := New().Interpret("between 10 and 5 characters")
	require.NoError(t, err)

	assert.Equal(t, domain.FilterSet{MinLength: domain.Int(10), MaxLength: domain.Int(5)}, res.Filters)
	assert.ErrorIs(t, res.Filters.Validate(), domain.ErrFilterConflict)
}

func TestInterpret_ShorterThanZeroIsAConflict(t *testing.T) {
	res, err := New().Interpret("shorter than 0 characters")
	require.NoError(t, err)

	assert.ErrorIs(t, res.Filters.Validate(), domain.ErrFilterConflict)
}

func TestInterpret_Unparsed(t *testing.T) {
	queries := []string{
		"purple monkey dishwasher",
		"",
		"   ",
		"longer than many characters",
		"exactly 2 words",
		"contains the letter",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			_, err := New().Interpret(q)
			assert.ErrorIs(t, err, domain.ErrUnparsed)
		})
	}
}

func TestInterpret_OverflowingNumberDoesNotMatch(t *testing.T) {
	for _, q := range []string{
		"longer than 99999999999999999999999 characters",
		// Fits an int, but the exclusive bound does not.
		"longer than 9223372036854775807 characters",
	} {
		_, err := New().Interpret(q)
		assert.ErrorIs(t, err, domain.ErrUnparsed, q)
	}
}

func TestNew_CustomRules(t *testing.T) {
	interp := New(Rule{
		Name:    "tiny",
		Pattern: regexp.MustCompile(`\btiny\b`),
		Apply: func(_ []string, fs *domain.FilterSet) bool {
			fs.MaxLength = domain.Int(3)
			return true
		},
	})

	res, err := interp.Interpret("Tiny strings")
	require.NoError(t, err)
	assert.Equal(t, domain.FilterSet{MaxLength: domain.Int(3)}, res.Filters)

	_, err = interp.Interpret("palindromes")
	assert.ErrorIs(t, err, domain.ErrUnparsed)
}

func TestDefaultRules_NamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range New().Rules() {
		assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		seen[r.Name] = true
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "single word palindromes", Normalize("  Single\tWORD\n palindromes "))
}
