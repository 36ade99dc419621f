// Package health serves the liveness and readiness probes for the Ledgerly
// server.
//
//   - /healthz answers 200 whenever the process can serve HTTP at all.
//   - /readyz answers 200 only while every registered [Checker] passes, so a
//     deployment with a broken ledger database drops out of rotation without
//     the process dying.
//
// Both respond with a JSON body: {"status": "ok"|"fail", "checks": {...}}.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout caps how long one readiness checker may run. A hung database
// ping must not hold the probe past the kubelet's own deadline.
const probeTimeout = 5 * time.Second

// Checker probes one dependency the server cannot work without.
type Checker struct {
	// Name keys the check in the readiness response, e.g. "database".
	Name string

	// Check returns nil while the dependency is usable. It must honour
	// context cancellation.
	Check func(ctx context.Context) error
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the two probe endpoints. The checker set is fixed at
// construction; serving is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a Handler over the given checkers. Readiness evaluates them in
// the order given and reports every outcome, not just the first failure.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register mounts /healthz and /readyz on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz is the liveness probe. Reaching the handler is the whole test.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every checker under a [probeTimeout] deadline and answers 503
// as soon as any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[c.Name] = "ok"
	}

	respond(w, code, rep)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
