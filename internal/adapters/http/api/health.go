// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/rollcall/pkg/metrics"
)

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests. It reports the store
// connection state without failing the whole check on a store outage.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	storeState := "ok"
	if err := h.deps.Store().Ping(r.Context()); err != nil {
		storeState = "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"store":  storeState,
		"time":   time.Now().UTC(),
	})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
