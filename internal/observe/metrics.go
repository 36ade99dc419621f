// Package observe provides application-wide observability primitives for
// Ledgerly: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ledgerly-ai/ledgerly/internal/tool"
)

// meterName is the instrumentation scope name used for all Ledgerly metrics.
const meterName = "github.com/ledgerly-ai/ledgerly"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ToolDuration tracks tool execution latency. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolDuration metric.Float64Histogram

	// ToolCalls counts tool invocations by tool name and result status.
	ToolCalls metric.Int64Counter

	// ResolverOutcomes counts entity resolution results. Use with attributes:
	//   attribute.String("outcome", "auto"|"ambiguous"|"none")
	ResolverOutcomes metric.Int64Counter

	// ChatTurns counts text chat turns by role.
	ChatTurns metric.Int64Counter

	// ActiveVoiceSessions tracks the number of live voice sessions.
	ActiveVoiceSessions metric.Int64UpDownCounter

	// BargeIns counts user interruptions of agent speech.
	BargeIns metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Tool calls
// are local store operations at the fast end and full LLM round trips at the
// slow end.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ToolDuration, err = m.Float64Histogram("ledgerly.tool.duration",
		metric.WithDescription("Latency of tool execution by tool name and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("ledgerly.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ResolverOutcomes, err = m.Int64Counter("ledgerly.resolver.outcomes",
		metric.WithDescription("Entity resolution results by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ChatTurns, err = m.Int64Counter("ledgerly.chat.turns",
		metric.WithDescription("Text chat turns by role."),
	); err != nil {
		return nil, err
	}
	if met.ActiveVoiceSessions, err = m.Int64UpDownCounter("ledgerly.voice.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}
	if met.BargeIns, err = m.Int64Counter("ledgerly.voice.barge_ins",
		metric.WithDescription("User interruptions of agent speech."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("ledgerly.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

var _ tool.Metrics = (*Metrics)(nil)

// ToolCall records one dispatched tool call. It implements [tool.Metrics] so
// a *Metrics can be passed straight to the dispatcher.
func (m *Metrics) ToolCall(ctx context.Context, name string, status tool.Status, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", name),
		attribute.String("status", string(status)),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordResolverOutcome records one entity resolution attempt.
func (m *Metrics) RecordResolverOutcome(ctx context.Context, outcome string) {
	m.ResolverOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordChatTurn records one text chat turn.
func (m *Metrics) RecordChatTurn(ctx context.Context, role string) {
	m.ChatTurns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("role", role)),
	)
}

// RecordBargeIn records one user interruption.
func (m *Metrics) RecordBargeIn(ctx context.Context) {
	m.BargeIns.Add(ctx, 1)
}
