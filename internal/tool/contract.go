package tool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ledgerly-ai/ledgerly/internal/resolve"
)

// changeSet accumulates the old/new diff a preview reports and an apply
// persists. Only genuinely different values enter the set, which is what
// makes the NoChanges outcome reliable: an apply whose set is empty writes
// nothing.
type changeSet struct {
	changes []FieldChange
}

// set records a change when new differs from old.
func (c *changeSet) set(field string, oldVal, newVal any) {
	if reflect.DeepEqual(oldVal, newVal) {
		return
	}
	c.changes = append(c.changes, FieldChange{Field: field, Old: oldVal, New: newVal})
}

func (c *changeSet) empty() bool { return len(c.changes) == 0 }

// keys returns the change field names for applied-result summaries.
func (c *changeSet) keys() []string {
	out := make([]string, len(c.changes))
	for i, ch := range c.changes {
		out[i] = ch.Field
	}
	return out
}

// preview wraps the change set in a StatusPreview result.
func (c *changeSet) preview(summary string) Result {
	return Result{Status: StatusPreview, Summary: summary, Changes: c.changes}
}

// applied wraps the change set in a StatusApplied result.
func (c *changeSet) applied(summary string) Result {
	return Result{Status: StatusApplied, Summary: summary, Changes: c.changes}
}

// noChanges is the uniform no-op outcome for an update whose requested
// values all equal current values.
func noChanges(label string) Result {
	return Result{
		Status:  StatusNoChanges,
		Summary: fmt.Sprintf("the %s already has the requested values; nothing to change", label),
	}
}

// pickResolved resolves a free-text reference against a pool of entities.
//
// Outcomes follow the auto-select policy: a top suggestion at or above
// [resolve.AutoConfirmScore] is used directly; anything weaker is surfaced
// to the user, either as "did you mean" suggestions or, with no candidates
// at all, as a not-found inviting creation. ok is true only when a single
// entity was selected. Every attempt is recorded on m under its outcome.
func pickResolved[T any](ctx context.Context, m Metrics, label, term string, pool []T, candOf func(T) resolve.Candidate) (*T, Result, bool) {
	cands := make([]resolve.Candidate, len(pool))
	for i, item := range pool {
		cands[i] = candOf(item)
	}
	res := resolve.Resolve(term, cands, 0)

	switch {
	case res.AutoConfirmed():
		recordResolution(ctx, m, "auto")
		id := res.Best().ID
		for i := range pool {
			if candOf(pool[i]).ID == id {
				return &pool[i], Result{}, true
			}
		}
		// Unreachable unless candOf is inconsistent between the two passes.
		return nil, Errorf("could not load the matched %s", label), false
	case res.Ambiguous():
		recordResolution(ctx, m, "ambiguous")
		return nil, Result{
			Status:      StatusNotFound,
			Summary:     fmt.Sprintf("no exact %s match for %q — did you mean one of these?", label, term),
			Suggestions: res.Suggestions,
		}, false
	default:
		recordResolution(ctx, m, "none")
		return nil, Result{
			Status:  StatusNotFound,
			Summary: fmt.Sprintf("no %s matching %q; you can create one first", label, term),
		}, false
	}
}

// recordResolution is nil-safe so tool families built without a metrics sink
// stay silent.
func recordResolution(ctx context.Context, m Metrics, outcome string) {
	if m != nil {
		m.RecordResolverOutcome(ctx, outcome)
	}
}

// storageError is the uniform user-safe result for datastore failures. The
// caller logs the raw cause separately.
func storageError(verb, label string) Result {
	return Errorf("could not %s the %s right now; nothing was changed", verb, label)
}
