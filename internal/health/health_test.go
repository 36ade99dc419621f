package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/health"
)

type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probe(t *testing.T, h http.Handler, path string) (int, probeBody) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s body: %v", path, err)
	}
	return rec.Code, body
}

func mount(checkers ...health.Checker) http.Handler {
	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	return mux
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	// Even with a failing checker registered, liveness only proves the
	// process serves HTTP.
	h := mount(health.Checker{
		Name:  "database",
		Check: func(context.Context) error { return errors.New("down") },
	})

	code, body := probe(t, h, "/healthz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %q", code, body.Status)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	pass := func(context.Context) error { return nil }
	fail := func(msg string) func(context.Context) error {
		return func(context.Context) error { return errors.New(msg) }
	}

	tests := []struct {
		name       string
		checkers   []health.Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all pass",
			checkers: []health.Checker{
				{Name: "database", Check: pass},
				{Name: "voice_agent", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"database": "ok", "voice_agent": "ok"},
		},
		{
			name: "one failure flips the probe",
			checkers: []health.Checker{
				{Name: "database", Check: fail("connection refused")},
				{Name: "voice_agent", Check: pass},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{
				"database":    "fail: connection refused",
				"voice_agent": "ok",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, body := probe(t, mount(tc.checkers...), "/readyz")
			if code != tc.wantCode {
				t.Errorf("code = %d, want %d", code, tc.wantCode)
			}
			if body.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tc.wantStatus)
			}
			for name, want := range tc.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyzHonoursRequestCancellation(t *testing.T) {
	t.Parallel()

	h := mount(health.Checker{
		Name: "slow",
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}
