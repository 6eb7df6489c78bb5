// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/enroll"
)

// EnrollmentHandler handles enrollment session and face library requests.
type EnrollmentHandler struct {
	deps Dependencies
}

// NewEnrollmentHandler creates a new enrollment handler.
func NewEnrollmentHandler(deps Dependencies) *EnrollmentHandler {
	return &EnrollmentHandler{deps: deps}
}

type startSessionRequest struct {
	Name string `json:"name"`
}

// HandleStartSession handles POST /api/v1/enrollment/sessions requests.
func (h *EnrollmentHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	progress, err := h.deps.Enrollment().Start(strings.TrimSpace(req.Name), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, enroll.ErrEmptyName):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, enroll.ErrSessionActive):
			writeError(w, http.StatusConflict, "session_active", err)
		default:
			writeError(w, http.StatusInternalServerError, "enrollment_error", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, progress)
}

// HandleSessionStatus handles GET /api/v1/enrollment/sessions/current.
func (h *EnrollmentHandler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := h.deps.Enrollment().Progress()
	if err != nil {
		writeError(w, http.StatusNotFound, "no_session", err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HandleCancelSession handles DELETE /api/v1/enrollment/sessions/current.
func (h *EnrollmentHandler) HandleCancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Enrollment().Cancel(); err != nil {
		writeError(w, http.StatusNotFound, "no_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleNames handles GET /api/v1/faces/names requests.
func (h *EnrollmentHandler) HandleNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.deps.Store().Names(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"names": names,
		"count": len(names),
	})
}

type addSampleRequest struct {
	Name     string         `json:"name"`
	Encoding types.Encoding `json:"encoding"`
	Quality  float64        `json:"quality"`
}

// HandleAddSample handles POST /api/v1/faces requests with a caller-supplied
// encoding.
func (h *EnrollmentHandler) HandleAddSample(w http.ResponseWriter, r *http.Request) {
	var req addSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	sample, err := h.deps.Enrollment().AddSample(r.Context(), strings.TrimSpace(req.Name), req.Encoding, req.Quality)
	if err != nil {
		switch {
		case errors.Is(err, enroll.ErrEmptyName), errors.Is(err, enroll.ErrBadEncoding):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		default:
			writeError(w, http.StatusInternalServerError, "store_error", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

type faceExport struct {
	Samples []model.FaceSample `json:"samples"`
	Count   int                `json:"count"`
}

// HandleExport handles GET /api/v1/faces/export requests.
func (h *EnrollmentHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	samples, err := h.deps.Enrollment().Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, faceExport{Samples: samples, Count: len(samples)})
}

// HandleImport handles POST /api/v1/faces/import requests.
func (h *EnrollmentHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req faceExport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	added, err := h.deps.Enrollment().Import(r.Context(), req.Samples)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": added,
		"skipped":  len(req.Samples) - added,
	})
}

// HandleDeleteFace handles DELETE /api/v1/faces/{name} requests.
func (h *EnrollmentHandler) HandleDeleteFace(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.deps.Enrollment().Remove(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
