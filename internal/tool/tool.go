// Package tool implements the registry of named tools the language model
// calls, the uniform preview/confirm contract every mutating tool follows,
// and the dispatcher that sits between an authenticated conversation and the
// tools.
//
// The contract: a mutating tool invoked with confirmed=false computes and
// returns the intended change set without touching storage; the same call
// repeated with confirmed=true re-validates against current state and
// persists. A tool never panics and never returns a Go error across the
// dispatch boundary — every outcome, including failure, is a tagged [Result].
package tool

import (
	"context"
	"fmt"
)

// Status tags every tool outcome. The orchestrating model branches on it,
// so values are stable wire strings, not display text.
type Status string

const (
	// StatusPreview means the change set was computed and returned without
	// any storage mutation. Safe to repeat any number of times.
	StatusPreview Status = "preview"

	// StatusApplied means the mutation was validated and persisted.
	StatusApplied Status = "applied"

	// StatusOK means a read-only tool completed. Read tools bypass the
	// preview/confirm protocol entirely — they have nothing to confirm.
	StatusOK Status = "ok"

	// StatusNotFound means a referenced entity could not be resolved for
	// this user. The result may carry "did you mean" suggestions.
	StatusNotFound Status = "not_found"

	// StatusBlocked means the operation is structurally disallowed, such as
	// editing a paid invoice. The summary names the reason and, where one
	// exists, an alternative action.
	StatusBlocked Status = "blocked"

	// StatusNoChanges means a well-formed update whose requested values all
	// equal current values. Not an error; reported distinctly so the
	// narrating layer does not claim a change occurred.
	StatusNoChanges Status = "no_changes"

	// StatusExists means a create was refused because an entity with the
	// same identity already exists for this user.
	StatusExists Status = "exists"

	// StatusInvalid means the parameters failed validation before any
	// storage access.
	StatusInvalid Status = "validation_failed"

	// StatusError is an unexpected failure (storage, panic). The summary is
	// generic; the raw cause goes to the operator log only.
	StatusError Status = "error"
)

// FieldChange is one entry of a preview's change set.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Result is the uniform outcome of every tool execution.
type Result struct {
	Status Status `json:"status"`

	// Summary is the human-readable line the assistant relays to the user.
	// It never contains raw error causes.
	Summary string `json:"summary"`

	// Changes is the old/new change set for preview and applied outcomes.
	Changes []FieldChange `json:"changes,omitempty"`

	// Data carries tool-specific structured output (created ids, resolved
	// entities, report rows).
	Data map[string]any `json:"data,omitempty"`

	// Suggestions carries "did you mean" candidates on StatusNotFound.
	Suggestions any `json:"suggestions,omitempty"`

	// Warnings reports partial failures on otherwise successful outcomes,
	// such as invoice line items that could not be saved.
	Warnings []string `json:"warnings,omitempty"`
}

// Invocation is what the dispatcher hands a tool: the authenticated caller,
// the effective data owner, and the model-supplied parameters.
type Invocation struct {
	// UserID is the authenticated caller. Set by the dispatcher from the
	// session — any identity field inside Params has already been
	// overwritten with it.
	UserID string

	// OwnerID is the effective data owner the tool must scope every storage
	// access by. Equals UserID unless the caller acts for a team.
	OwnerID string

	// Params is the decoded JSON parameter object from the model.
	Params map[string]any

	// Metrics is the dispatcher's observation sink, forwarded so tools can
	// record entity resolution outcomes. Nil when none is configured.
	Metrics Metrics
}

// Definition is the schema a tool advertises to the language model and to
// MCP clients.
type Definition struct {
	Name        string
	Description string

	// Parameters is a JSON Schema object describing the parameter payload.
	Parameters map[string]any
}

// Tool is a single named capability. Execute must honour ctx, must not
// panic, and must report every failure through the Result status.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, inv Invocation) Result
}

// Func adapts a function to the [Tool] interface.
type Func struct {
	Def Definition
	Fn  func(ctx context.Context, inv Invocation) Result
}

var _ Tool = Func{}

// Definition implements [Tool].
func (f Func) Definition() Definition { return f.Def }

// Execute implements [Tool].
func (f Func) Execute(ctx context.Context, inv Invocation) Result {
	return f.Fn(ctx, inv)
}

// ── Result constructors ─────────────────────────────────────────────────────

// Errorf returns a StatusError result with a formatted user-safe summary.
// The raw cause must be logged by the caller, never embedded here.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Summary: fmt.Sprintf(format, args...)}
}

// Invalidf returns a StatusInvalid result.
func Invalidf(format string, args ...any) Result {
	return Result{Status: StatusInvalid, Summary: fmt.Sprintf(format, args...)}
}

// Blockedf returns a StatusBlocked result.
func Blockedf(format string, args ...any) Result {
	return Result{Status: StatusBlocked, Summary: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a StatusNotFound result without suggestions.
func NotFoundf(format string, args ...any) Result {
	return Result{Status: StatusNotFound, Summary: fmt.Sprintf(format, args...)}
}
