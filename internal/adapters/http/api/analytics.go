// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/rollcall/internal/analytics"
)

// AnalyticsHandler handles report requests.
type AnalyticsHandler struct {
	deps Dependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps Dependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// days returns the report window from the query, 0 meaning the configured
// default. The ok result is false when the parameter is malformed.
func days(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// HandlePeakHours handles GET /api/v1/analytics/peak-hours requests.
func (h *AnalyticsHandler) HandlePeakHours(w http.ResponseWriter, r *http.Request) {
	n, ok := days(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
		return
	}
	report, err := h.deps.Reports().PeakHours(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDailyPatterns handles GET /api/v1/analytics/daily-patterns requests.
func (h *AnalyticsHandler) HandleDailyPatterns(w http.ResponseWriter, r *http.Request) {
	n, ok := days(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
		return
	}
	report, err := h.deps.Reports().DailyPatterns(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandlePerformance handles GET /api/v1/analytics/performance requests.
func (h *AnalyticsHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	n, ok := days(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
		return
	}
	report, err := h.deps.Reports().Performance(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleAccuracy handles GET /api/v1/analytics/accuracy requests.
func (h *AnalyticsHandler) HandleAccuracy(w http.ResponseWriter, r *http.Request) {
	n, ok := days(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
		return
	}
	report, err := h.deps.Reports().Accuracy(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRealtime handles GET /api/v1/analytics/realtime requests.
func (h *AnalyticsHandler) HandleRealtime(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Reports().Realtime(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleComprehensive handles GET /api/v1/analytics/comprehensive requests.
// format=pdf renders the report as a PDF document.
func (h *AnalyticsHandler) HandleComprehensive(w http.ResponseWriter, r *http.Request) {
	n, ok := days(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
		return
	}

	snap := h.deps.Snapshot(r.Context())
	rt := analytics.RuntimeStats{
		Counters:      snap.Counters,
		UptimeSeconds: snap.UptimeSeconds,
	}
	report, err := h.deps.Reports().Comprehensive(r.Context(), n, rt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analytics_error", err)
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		data, err := analytics.RenderPDF(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "pdf_error", err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance-report.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
