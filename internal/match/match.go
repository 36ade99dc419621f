// Package match implements the fuzzy string matching that underlies entity
// resolution: classifying what kind of identifier a free-text search term is
// (email, phone, or name) and scoring term/candidate similarity on a 0..100
// scale.
//
// Both functions are pure and deterministic — the same inputs always yield
// the same outputs. Resolution auto-confirmation thresholds that gate
// money-moving decisions sit on top of these scores, so any hidden state or
// randomness here would be a correctness bug, not a style issue.
package match

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind classifies a search term so callers can pick the right comparison field.
type Kind string

const (
	// KindEmail means the term looks like an email address.
	KindEmail Kind = "email"

	// KindPhone means the term looks like a phone number.
	KindPhone Kind = "phone"

	// KindName is the default: compare against names.
	KindName Kind = "name"
)

// Classify reports what kind of identifier term looks like.
//
// A term containing both "@" and "." is an email. A term that, after
// stripping whitespace, "+", "-" and parentheses, is at least seven
// characters and entirely numeric is a phone number. Everything else is a
// name.
func Classify(term string) Kind {
	if strings.Contains(term, "@") && strings.Contains(term, ".") {
		return KindEmail
	}
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '+', '-', '(', ')':
			return -1
		}
		return r
	}, term)
	if len(stripped) >= 7 && isDigits(stripped) {
		return KindPhone
	}
	return KindName
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Score rates the similarity of search against target as an integer in
// [0, 100]. Comparison is case-insensitive.
//
//   - exact match → 100
//   - one string contains the other → 90
//   - otherwise 100 * (1 - editDistance/maxLen), floored at 0 and rounded
//     to the nearest integer, where editDistance is classic Levenshtein
//     (unit-cost insert/delete/substitute).
func Score(search, target string) int {
	a := strings.ToLower(search)
	b := strings.ToLower(target)

	if a == b {
		return 100
	}
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 90
	}

	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	score := 100 * (1 - float64(dist)/float64(maxLen))
	if score < 0 {
		return 0
	}
	return int(math.Round(score))
}
