// Package resolve turns a user-supplied free-text reference (a name, email
// address, or phone number) into ranked candidate entities belonging to the
// calling user.
//
// Resolution is a scoring pass over an in-memory candidate pool the caller
// has already loaded (owner-scoped), so the resolver itself never touches the
// datastore and never errors on "not found" — absence is a normal outcome
// expressed as an empty suggestion list.
package resolve

import (
	"strings"

	"github.com/ledgerly-ai/ledgerly/internal/match"
)

const (
	// MinScore is the floor below which candidates are discarded entirely.
	MinScore = 50

	// AutoConfirmScore is the threshold at or above which a single top
	// suggestion may be used without asking the user to confirm the entity's
	// identity. The preview/confirm protocol still applies to the action.
	AutoConfirmScore = 85

	// DefaultLimit caps the suggestion list when the caller passes limit <= 0.
	DefaultLimit = 5
)

// Candidate is one entry of the pool a search term is resolved against.
// Secondary is an optional extra comparison field for name searches
// (company name for parties, client name for projects, and so on).
type Candidate struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Secondary string
}

// Suggestion is a scored candidate.
type Suggestion struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Resolution is the outcome of resolving one search term.
type Resolution struct {
	// Kind is how the search term was classified (email, phone, name).
	Kind match.Kind `json:"match_type"`

	// Suggestions is the ranked candidate list, best first, capped at the
	// caller's limit. Empty means the entity does not exist for this user
	// and creation should be offered.
	Suggestions []Suggestion `json:"suggestions"`
}

// Best returns the top suggestion, or a zero Suggestion when there are none.
func (r Resolution) Best() Suggestion {
	if len(r.Suggestions) == 0 {
		return Suggestion{}
	}
	return r.Suggestions[0]
}

// AutoConfirmed reports whether the top suggestion is strong enough to use
// without an identity confirmation round-trip.
func (r Resolution) AutoConfirmed() bool {
	return len(r.Suggestions) > 0 && r.Suggestions[0].Score >= AutoConfirmScore
}

// Ambiguous reports whether the caller should ask "did you mean …?" —
// there is at least one suggestion but none strong enough to auto-confirm.
func (r Resolution) Ambiguous() bool {
	return len(r.Suggestions) > 0 && !r.AutoConfirmed()
}

// Resolve scores term against the candidate pool and returns the ranked
// outcome.
//
// Email and phone terms are compared by substring against the respective
// field only: exact field equality scores 100, any other substring hit 90 —
// name similarity is irrelevant for these (searching "jo@x.co" must never
// surface a client just because their name resembles the string).
//
// Name terms score every candidate's Name and Secondary field via
// [match.Score], keeping the better of the two. Candidates below [MinScore]
// are dropped. Ties keep pool order — the caller must tolerate undisambiguated
// ties.
//
// A name term whose lexical scores all fall short of [AutoConfirmScore] gets a
// second pass through the sound-alike matcher: spoken input arrives mangled
// ("ak me corporation" for "Acme Corp") in ways edit distance does not
// tolerate. A sound-alike hit strengthens or adds a suggestion but is always
// held below [AutoConfirmScore] — phonetic evidence alone never skips the
// identity question.
func Resolve(term string, pool []Candidate, limit int) Resolution {
	if limit <= 0 {
		limit = DefaultLimit
	}
	kind := match.Classify(term)
	res := Resolution{Kind: kind}

	termLower := strings.ToLower(strings.TrimSpace(term))
	if termLower == "" {
		return res
	}

	for _, cand := range pool {
		score := 0
		switch kind {
		case match.KindEmail:
			score = fieldScore(termLower, cand.Email)
		case match.KindPhone:
			score = fieldScore(normalizePhone(termLower), normalizePhone(cand.Phone))
		default:
			score = match.Score(term, cand.Name)
			if cand.Secondary != "" {
				if s := match.Score(term, cand.Secondary); s > score {
					score = s
				}
			}
		}
		if score < MinScore {
			continue
		}
		res.Suggestions = append(res.Suggestions, Suggestion{ID: cand.ID, Name: cand.Name, Score: score})
	}

	if kind == match.KindName && !hasAutoConfirm(res.Suggestions) {
		res.Suggestions = phoneticPass(term, pool, res.Suggestions)
	}

	// Stable sort: ties keep the pool's original order.
	sortSuggestions(res.Suggestions)
	if len(res.Suggestions) > limit {
		res.Suggestions = res.Suggestions[:limit]
	}
	return res
}

// phonetic is shared across calls; the matcher is read-only after construction.
var phonetic = match.NewPhonetic()

func hasAutoConfirm(s []Suggestion) bool {
	for _, sg := range s {
		if sg.Score >= AutoConfirmScore {
			return true
		}
	}
	return false
}

// phoneticPass runs the sound-alike matcher over the pool's names and folds a
// hit into the suggestion list: an existing entry's score is raised to the
// matcher's confidence, a missing one is added. The folded score is capped
// just below AutoConfirmScore so a phonetic hit always surfaces as a
// suggestion the user confirms, never a silent pick.
func phoneticPass(term string, pool []Candidate, sugs []Suggestion) []Suggestion {
	names := make([]string, len(pool))
	for i, cand := range pool {
		names[i] = cand.Name
	}
	corrected, conf, ok := phonetic.Match(term, names)
	if !ok {
		return sugs
	}
	score := int(conf * 100)
	if score >= AutoConfirmScore {
		score = AutoConfirmScore - 1
	}
	if score < MinScore {
		return sugs
	}
	for _, cand := range pool {
		if cand.Name != corrected {
			continue
		}
		for i := range sugs {
			if sugs[i].ID == cand.ID {
				if score > sugs[i].Score {
					sugs[i].Score = score
				}
				return sugs
			}
		}
		return append(sugs, Suggestion{ID: cand.ID, Name: cand.Name, Score: score})
	}
	return sugs
}

// fieldScore implements the email/phone comparison rule: 100 for exact field
// equality, 90 for a substring hit, 0 otherwise.
func fieldScore(term, field string) int {
	if field == "" {
		return 0
	}
	field = strings.ToLower(field)
	if field == term {
		return 100
	}
	if strings.Contains(field, term) {
		return 90
	}
	return 0
}

// normalizePhone strips the separators people type into phone numbers so
// "+49 (170) 123-4567" and "491701234567" compare by digits.
func normalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '+', '-', '(', ')':
			return -1
		}
		return r
	}, s)
}

// sortSuggestions sorts descending by score with a stable insertion sort —
// suggestion lists are at most pool-sized and typically tiny, and stability
// is part of the contract.
func sortSuggestions(s []Suggestion) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score > s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
