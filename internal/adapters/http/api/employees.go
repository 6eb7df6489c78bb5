// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// EmployeesHandler handles employee directory requests.
type EmployeesHandler struct {
	deps Dependencies
}

// NewEmployeesHandler creates a new employees handler.
func NewEmployeesHandler(deps Dependencies) *EmployeesHandler {
	return &EmployeesHandler{deps: deps}
}

type createEmployeeRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Department    string `json:"department"`
	Position      string `json:"position"`
	WorkStartTime string `json:"work_start_time"`
}

func (req createEmployeeRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("missing name")
	}
	if req.WorkStartTime != "" {
		if _, err := types.ParseTimeOfDay(req.WorkStartTime); err != nil {
			return errors.New("invalid work_start_time; must be HH:MM")
		}
	}
	return nil
}

// HandleCreate handles POST /api/v1/employees requests.
func (h *EmployeesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	start := req.WorkStartTime
	if start == "" {
		start = model.DefaultWorkStartTime
	}
	now := time.Now()
	emp := model.Employee{
		EmployeeID:    model.NewEmployeeID(),
		Name:          strings.TrimSpace(req.Name),
		Phone:         strings.TrimSpace(req.Phone),
		Department:    req.Department,
		Position:      req.Position,
		WorkStartTime: start,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.deps.Store().CreateEmployee(r.Context(), emp); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicatePhone):
			writeError(w, http.StatusConflict, "duplicate_phone", err)
		case errors.Is(err, store.ErrDuplicateEmployee):
			writeError(w, http.StatusConflict, "duplicate_employee", err)
		default:
			writeError(w, http.StatusInternalServerError, "store_error", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// HandleList handles GET /api/v1/employees requests.
func (h *EmployeesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	employees, err := h.deps.Store().ListEmployees(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employees": employees,
		"count":     len(employees),
	})
}

// HandleGet handles GET /api/v1/employees/{id} requests.
func (h *EmployeesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	emp, err := h.deps.Store().GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// HandleDeactivate handles DELETE /api/v1/employees/{id} requests. The
// employee record stays; only is_active clears.
func (h *EmployeesHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store().DeactivateEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkFaceRequest struct {
	FaceName string `json:"face_name"`
}

// HandleLinkFace handles POST /api/v1/employees/{id}/face requests.
func (h *EmployeesHandler) HandleLinkFace(w http.ResponseWriter, r *http.Request) {
	var req linkFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.FaceName) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing face_name"))
		return
	}
	if err := h.deps.Store().LinkFace(r.Context(), chi.URLParam(r, "id"), req.FaceName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
