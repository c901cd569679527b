// Package health exposes liveness and readiness probe endpoints. Checks are
// evaluated synchronously per probe request with a per-check timeout, which
// keeps the package free of background goroutines; the HTTP server's own
// probe cadence provides the polling.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Probe holds the registered liveness and readiness checks. The zero value
// is not ready; call SetReady(true) once initialization completes and
// SetReady(false) when shutdown begins so load balancers drain traffic.
type Probe struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates an empty, not-ready Probe.
func New() *Probe {
	return &Probe{}
}

// AddLiveness registers a liveness check, e.g. a goroutine-leak guard.
func (p *Probe) AddLiveness(name string, timeout time.Duration, fn CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liveness = append(p.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadiness registers a readiness check, e.g. a database ping.
func (p *Probe) AddReadiness(name string, timeout time.Duration, fn CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readiness = append(p.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate.
func (p *Probe) SetReady(ready bool) {
	p.ready.Store(ready)
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveHandler serves the /livez endpoint: 200 when every liveness check
// passes, 503 with per-check failure messages otherwise.
func (p *Probe) LiveHandler(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	checks := make([]check, len(p.liveness))
	copy(checks, p.liveness)
	p.mu.RUnlock()

	writeProbe(w, runChecks(r.Context(), checks))
}

// ReadyHandler serves the /readyz endpoint: 200 only when the manual gate is
// open and every readiness check passes.
func (p *Probe) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	checks := make([]check, len(p.readiness))
	copy(checks, p.readiness)
	p.mu.RUnlock()

	failures := runChecks(r.Context(), checks)
	if !p.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func runChecks(ctx context.Context, checks []check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
