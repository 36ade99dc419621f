package tool

import (
	"context"
	"log/slog"
	"maps"
	"time"
)

// Identity resolves the effective data owner for an authenticated user.
// When the user acts on behalf of a team, storage is scoped by the team's
// owner id instead of the member's own.
type Identity interface {
	EffectiveOwner(ctx context.Context, userID string) (string, error)
}

// IdentityFunc adapts a function to [Identity].
type IdentityFunc func(ctx context.Context, userID string) (string, error)

// EffectiveOwner implements [Identity].
func (f IdentityFunc) EffectiveOwner(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// SelfIdentity scopes every user to their own data. The default when no team
// layer is configured.
var SelfIdentity Identity = IdentityFunc(func(_ context.Context, userID string) (string, error) {
	return userID, nil
})

// Metrics receives one observation per dispatched tool call and per entity
// resolution attempt. Implemented by the observe package; a nil Metrics
// disables recording.
type Metrics interface {
	ToolCall(ctx context.Context, name string, status Status, elapsed time.Duration)
	RecordResolverOutcome(ctx context.Context, outcome string)
}

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithIdentity sets the effective-owner resolver. Default: [SelfIdentity].
func WithIdentity(id Identity) DispatcherOption {
	return func(d *Dispatcher) { d.identity = id }
}

// WithMetrics sets the per-call metrics sink. Default: none.
func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the operator logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher routes one tool call from an authenticated conversation to a
// registered tool and guarantees the trust boundary and failure isolation
// every caller relies on:
//
//   - any identity field in the model-generated parameters is overwritten
//     with the session's user id before the tool sees them;
//   - a panicking tool is recovered into a StatusError result — one broken
//     tool never takes down the conversation loop;
//   - unknown tool names return a structured error result, not a Go error.
//
// Safe for concurrent use; independent calls may run in parallel.
type Dispatcher struct {
	registry *Registry
	identity Identity
	metrics  Metrics
	log      *slog.Logger
}

// NewDispatcher returns a dispatcher over the given registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		identity: SelfIdentity,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Definitions exposes the registry catalogue for the chat loop and the voice
// settings handshake.
func (d *Dispatcher) Definitions() []Definition {
	return d.registry.Definitions()
}

// Dispatch executes the named tool for the authenticated user. userID comes
// from the session, never from params. Always returns a Result; the Status
// field carries every failure mode.
func (d *Dispatcher) Dispatch(ctx context.Context, name, userID string, params map[string]any) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tool panicked", "tool", name, "panic", r)
			res = Errorf("the %s action failed unexpectedly; nothing was changed", name)
		}
		if d.metrics != nil {
			d.metrics.ToolCall(ctx, name, res.Status, time.Since(start))
		}
		d.log.Debug("tool dispatched",
			"tool", name, "status", res.Status, "elapsed", time.Since(start))
	}()

	t, ok := d.registry.Get(name)
	if !ok {
		d.log.Warn("unknown tool requested", "tool", name)
		return Errorf("unknown tool %q", name)
	}

	// Trust boundary: model-generated parameters never assert identity.
	scoped := make(map[string]any, len(params)+1)
	maps.Copy(scoped, params)
	delete(scoped, "userId")
	scoped["user_id"] = userID

	owner, err := d.identity.EffectiveOwner(ctx, userID)
	if err != nil {
		d.log.Error("effective owner resolution failed", "user", userID, "error", err)
		return Errorf("could not establish your account scope; nothing was changed")
	}

	return t.Execute(ctx, Invocation{UserID: userID, OwnerID: owner, Params: scoped, Metrics: d.metrics})
}
