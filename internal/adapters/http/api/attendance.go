// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rollcall/internal/domain/types"
)

// DefaultHistoryDays bounds /attendance/history without a days parameter.
const DefaultHistoryDays = 30

// AttendanceHandler handles attendance query requests.
type AttendanceHandler struct {
	deps Dependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps Dependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

// HandleToday handles GET /api/v1/attendance/today requests. An optional
// date parameter selects another day.
func (h *AttendanceHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = types.DateOf(time.Now())
	} else if _, err := time.Parse(types.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid date; must be YYYY-MM-DD"))
		return
	}

	records, err := h.deps.Store().AttendanceOn(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": records,
		"count":   len(records),
	})
}

// HandleHistory handles GET /api/v1/attendance/history/{id} requests.
func (h *AttendanceHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	days := DefaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid days"))
			return
		}
		days = n
	}

	employeeID := chi.URLParam(r, "id")
	records, err := h.deps.Store().AttendanceHistory(r.Context(), employeeID, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"days":        days,
		"records":     records,
		"count":       len(records),
	})
}

// HandleRange handles GET /api/v1/attendance/range?from=&to= requests.
func (h *AttendanceHandler) HandleRange(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if _, err := time.Parse(types.DateLayout, from); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid from; must be YYYY-MM-DD"))
		return
	}
	if _, err := time.Parse(types.DateLayout, to); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid to; must be YYYY-MM-DD"))
		return
	}
	if to < from {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("to precedes from"))
		return
	}

	records, err := h.deps.Store().AttendanceRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":    from,
		"to":      to,
		"records": records,
		"count":   len(records),
	})
}
