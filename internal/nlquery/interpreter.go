// Package nlquery turns free-text queries such as
// "single word palindromic strings longer than 3 characters" into structured
// filter sets.
//
// Interpretation is pure pattern matching over a fixed phrase vocabulary. The
// vocabulary is an ordered rule catalog; every rule is tested against the
// normalized query and each matching rule writes its keys into the result.
// When two matching rules write the same key, the rule that comes later in
// the catalog wins.
package nlquery

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// Rule is a single phrase matcher of the catalog.
type Rule struct {
	// Name identifies the rule in logs and tests.
	Name string
	// Pattern is matched against the lower-cased, whitespace-collapsed query.
	Pattern *regexp.Regexp
	// Apply writes the rule's effect into fs using the submatches of the first
	// match. It returns false when the captured text cannot be used, in which
	// case the rule counts as not matched.
	Apply func(match []string, fs *domain.FilterSet) bool
}

// Result is the outcome of a successful interpretation.
type Result struct {
	Filters domain.FilterSet
	// Matched lists the names of the rules that fired, in catalog order.
	Matched []string
}

// Interpreter evaluates a rule catalog against queries. It is immutable and
// safe for concurrent use.
type Interpreter struct {
	rules []Rule
}

// New returns an Interpreter using the given rules in order. With no rules it
// uses DefaultRules.
func New(rules ...Rule) *Interpreter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Interpreter{rules: rules}
}

// Interpret returns the filter set derived from query, or ErrUnparsed when no
// rule matched. The result is not validated: "between 10 and 5" yields
// min_length 10 and max_length 5, and callers decide how to report that.
func (i *Interpreter) Interpret(query string) (Result, error) {
	normalized := Normalize(query)

	var res Result
	for _, rule := range i.rules {
		match := rule.Pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		if rule.Apply(match, &res.Filters) {
			res.Matched = append(res.Matched, rule.Name)
		}
	}

	if len(res.Matched) == 0 {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnparsed, query)
	}
	return res, nil
}

// Rules returns a copy of the interpreter's catalog.
func (i *Interpreter) Rules() []Rule {
	return append([]Rule(nil), i.rules...)
}

// Normalize lower-cases query and collapses whitespace runs to single spaces.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

const lengthUnit = `(?: (?:characters?|chars?|letters?))?`

// DefaultRules returns the built-in phrase catalog.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "palindrome",
			Pattern: regexp.MustCompile(`\bpalindrom(?:e|es|ic)\b`),
			Apply: func(_ []string, fs *domain.FilterSet) bool {
				fs.IsPalindrome = domain.Bool(true)
				return true
			},
		},
		{
			// Comes after "palindrome" so the negated phrase wins.
			Name:    "non_palindrome",
			Pattern: regexp.MustCompile(`\bnon[- ]?palindrom(?:e|es|ic)\b|\bnot (?:a )?palindrom(?:e|es|ic)\b`),
			Apply: func(_ []string, fs *domain.FilterSet) bool {
				fs.IsPalindrome = domain.Bool(false)
				return true
			},
		},
		{
			Name:    "single_word",
			Pattern: regexp.MustCompile(`\b(?:single|one)[- ]words?\b`),
			Apply: func(_ []string, fs *domain.FilterSet) bool {
				fs.WordCount = domain.Int(1)
				return true
			},
		},
		{
			Name:    "two_words",
			Pattern: regexp.MustCompile(`\btwo[- ]words?\b`),
			Apply: func(_ []string, fs *domain.FilterSet) bool {
				fs.WordCount = domain.Int(2)
				return true
			},
		},
		{
			Name:    "at_least",
			Pattern: regexp.MustCompile(`\bat least (\d+)` + lengthUnit + `\b`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				n, ok := atoi(m[1])
				if !ok {
					return false
				}
				fs.MinLength = domain.Int(n)
				return true
			},
		},
		{
			Name:    "at_most",
			Pattern: regexp.MustCompile(`\bat most (\d+)` + lengthUnit + `\b`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				n, ok := atoi(m[1])
				if !ok {
					return false
				}
				fs.MaxLength = domain.Int(n)
				return true
			},
		},
		{
			Name:    "longer_than",
			Pattern: regexp.MustCompile(`\blonger than (\d+)` + lengthUnit + `\b`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				n, ok := atoi(m[1])
				if !ok || n == math.MaxInt {
					return false
				}
				fs.MinLength = domain.Int(n + 1)
				return true
			},
		},
		{
			Name:    "shorter_than",
			Pattern: regexp.MustCompile(`\bshorter than (\d+)` + lengthUnit + `\b`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				n, ok := atoi(m[1])
				if !ok {
					return false
				}
				// "shorter than 0" gives -1, which Validate reports as a conflict.
				fs.MaxLength = domain.Int(n - 1)
				return true
			},
		},
		{
			Name:    "exactly",
			Pattern: regexp.MustCompile(`\bexactly (\d+)( \w+)?`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				// "exactly 2 words" is about words, not length.
				if strings.HasPrefix(m[2], " word") {
					return false
				}
				n, ok := atoi(m[1])
				if !ok {
					return false
				}
				fs.MinLength = domain.Int(n)
				fs.MaxLength = domain.Int(n)
				return true
			},
		},
		{
			Name:    "between",
			Pattern: regexp.MustCompile(`\bbetween (\d+)` + lengthUnit + ` and (\d+)` + lengthUnit + `\b`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				lo, ok := atoi(m[1])
				if !ok {
					return false
				}
				hi, ok := atoi(m[2])
				if !ok {
					return false
				}
				fs.MinLength = domain.Int(lo)
				fs.MaxLength = domain.Int(hi)
				return true
			},
		},
		{
			Name:    "contains_letter",
			Pattern: regexp.MustCompile(`\bcontain(?:s|ing)? (?:the )?(?:letter|character) ['"]?([a-z0-9])['"]?(?:[^a-z0-9]|$)`),
			Apply: func(m []string, fs *domain.FilterSet) bool {
				fs.ContainsCharacter = domain.String(m[1])
				return true
			},
		},
		{
			// Fixed heuristic: the first vowel is always "a".
			Name:    "first_vowel",
			Pattern: regexp.MustCompile(`\bcontain(?:s|ing)? (?:the )?first vowel\b`),
			Apply: func(_ []string, fs *domain.FilterSet) bool {
				fs.ContainsCharacter = domain.String("a")
				return true
			},
		},
	}
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
