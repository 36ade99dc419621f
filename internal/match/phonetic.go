package match

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// PhoneticOption is a functional option for configuring a [Phonetic] matcher.
type PhoneticOption func(*Phonetic)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched candidate to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) PhoneticOption {
	return func(p *Phonetic) { p.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) PhoneticOption {
	return func(p *Phonetic) { p.fuzzyThreshold = threshold }
}

// Phonetic matches a transcribed spoken name against known entity names.
//
// Speech transcription mangles proper nouns ("Acme Corp" arrives as "ack me
// corp"), so the voice path runs candidate names through Double Metaphone
// before falling back to plain string similarity. The algorithm:
//
//  1. Phonetic filtering: if any Double Metaphone code of the input overlaps
//     any code of a candidate, the candidate is phonetically plausible.
//  2. Jaro-Winkler ranking among phonetic candidates, accepted above the
//     phonetic threshold.
//  3. When no phonetic candidate exists, a pure Jaro-Winkler pass with the
//     stricter fuzzy threshold.
//
// Multi-word names are handled by comparing full strings, space-stripped
// strings, and the best pairwise token score.
//
// All methods are safe for concurrent use — Phonetic is read-only after
// construction.
type Phonetic struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewPhonetic returns a [Phonetic] matcher configured with the supplied options.
func NewPhonetic(opts ...PhoneticOption) *Phonetic {
	p := &Phonetic{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Match finds the candidate most phonetically similar to term.
// When matched is false, corrected equals term unchanged and confidence is 0.
func (p *Phonetic) Match(term string, candidates []string) (corrected string, confidence float64, matched bool) {
	if len(candidates) == 0 || strings.TrimSpace(term) == "" {
		return term, 0, false
	}

	termLower := strings.ToLower(strings.TrimSpace(term))
	termTokens := strings.Fields(termLower)
	termCodes := metaphoneCodes(termTokens)

	type scored struct {
		name     string
		score    float64
		phonetic bool
	}
	var best scored

	for _, cand := range candidates {
		candLower := strings.ToLower(strings.TrimSpace(cand))
		if candLower == "" {
			continue
		}
		candTokens := strings.Fields(candLower)
		phonetic := codesOverlap(termCodes, metaphoneCodes(candTokens))
		jw := bestJaroWinkler(termTokens, candTokens, termLower, candLower)

		if phonetic {
			if jw >= p.phoneticThreshold && (!best.phonetic || jw > best.score) {
				best = scored{name: cand, score: jw, phonetic: true}
			}
		} else if !best.phonetic && jw >= p.fuzzyThreshold && jw > best.score {
			best = scored{name: cand, score: jw, phonetic: false}
		}
	}

	if best.name != "" {
		return best.name, best.score, true
	}
	return term, 0, false
}

// metaphoneCodes returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, tok := range tokens {
		primary, secondary := matchr.DoubleMetaphone(tok)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJaroWinkler compares the input and candidate with three strategies and
// returns the highest score: full strings, space-stripped strings, and the
// best pairwise token score.
func bestJaroWinkler(inputTokens, candTokens []string, inputFull, candFull string) float64 {
	score := matchr.JaroWinkler(inputFull, candFull, false)

	if len(inputTokens) > 1 || len(candTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(candTokens, ""), false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, ct := range candTokens {
			if s := matchr.JaroWinkler(it, ct, false); s > score {
				score = s
			}
		}
	}
	return score
}
