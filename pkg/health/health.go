// Package health serves liveness and readiness probes.
//
// Probes run their checks on request, in parallel, each bounded by its own
// timeout. Readiness additionally requires the service to be marked ready.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Health in the not-ready state.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that reports whether the process works.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that reports whether the service can
// take traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady sets the manual readiness flag. Set it to false at the start of a
// graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Live runs the liveness checks and returns failures by check name.
func (h *Health) Live(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := append([]check(nil), h.liveness...)
	h.mu.RUnlock()
	return runChecks(ctx, checks)
}

// Ready runs the readiness checks and returns failures by check name.
func (h *Health) Ready(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := append([]check(nil), h.readiness...)
	h.mu.RUnlock()

	failures := runChecks(ctx, checks)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	return failures
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, h.Live(r.Context()))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, h.Ready(r.Context()))
}

func runChecks(ctx context.Context, checks []check) map[string]string {
	var (
		mu       sync.Mutex
		failures = make(map[string]string)
	)

	// Checks never return errors to the group so every check runs to completion.
	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			if err := c.fn(checkCtx); err != nil {
				mu.Lock()
				failures[c.name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return failures
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		if len(failures) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for name, msg := range failures {
					e.Field(name, func(e *jx.Encoder) { e.Str(msg) })
				}
			})
		})
	})

	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
