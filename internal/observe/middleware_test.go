package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newMiddlewareHarness wires metrics and a span-capturing global tracer, then
// wraps handler in the middleware under test.
func newMiddlewareHarness(t *testing.T, handler http.HandlerFunc) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	return Middleware(m)(handler), reader, exp
}

func TestMiddlewareCorrelationHeader(t *testing.T) {
	var inHandler string
	h, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		inHandler = CorrelationID(r.Context())
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if len(inHandler) != 32 {
		t.Fatalf("handler saw correlation ID %q, want a 32-char trace ID", inHandler)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != inHandler {
		t.Errorf("X-Correlation-ID = %q, handler saw %q", got, inHandler)
	}
}

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	const upstream = "4bf92f3577b34da6a3ce929d0e0e4736"

	var inHandler string
	h, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		inHandler = CorrelationID(r.Context())
	})

	req := httptest.NewRequest("GET", "/chat", nil)
	req.Header.Set("traceparent", "00-"+upstream+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if inHandler != upstream {
		t.Errorf("correlation ID = %q, want the upstream trace %q", inHandler, upstream)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != upstream {
		t.Errorf("X-Correlation-ID = %q, want %q", got, upstream)
	}
}

func TestMiddlewareSpanAndStatus(t *testing.T) {
	h, _, exp := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "HTTP GET /missing" {
		t.Errorf("span name = %q", span.Name)
	}
	var status int64
	for _, a := range span.Attributes {
		if string(a.Key) == "http.response.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != http.StatusNotFound {
		t.Errorf("span status attribute = %d, want 404", status)
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	h, reader, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/chat", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "ledgerly.http.request.duration")
	if met == nil {
		t.Fatal("request duration metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("request duration metric has no histogram points")
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	want := map[string]string{"method": "POST", "path": "/chat"}
	for _, kv := range dp.Attributes.ToSlice() {
		if v, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == v {
			delete(want, string(kv.Key))
		}
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
}
