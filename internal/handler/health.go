package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/refresh"
)

// Pinger is a backend whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoopReporter exposes the refresh loops' state.
type LoopReporter interface {
	Ready() bool
	Loops() []refresh.Status
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Ready is 200 once both panels have data and every backend answers.
func Ready(loops LoopReporter, backends map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		ready := loops.Ready()
		checks := make(map[string]string, len(backends))
		for name, p := range backends {
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":   status,
			"loops":    loops.Loops(),
			"backends": checks,
		})
	}
}
