// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// EventsHandler handles recognition event requests.
type EventsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, maxLimit int) *EventsHandler {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxEventLimit
	}
	return &EventsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleRecent handles GET /api/v1/events requests.
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid limit"))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	events, err := h.deps.Store().RecentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// ingestRequest mirrors the OpenAPI schema for POST /events.
type ingestRequest struct {
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	CapturedAt string          `json:"captured_at"`
	Location   *types.Location `json:"location"`
	Source     string          `json:"source"`
}

func (req ingestRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return errors.New("missing name")
	case req.Confidence <= 0 || req.Confidence > 1:
		return errors.New("confidence must be in (0, 1]")
	case req.Source != "" && req.Source != model.SourceAPI && req.Source != model.SourceSimulated:
		return errors.New("source must be api or simulated")
	}
	if req.CapturedAt != "" {
		if _, err := time.Parse(time.RFC3339, req.CapturedAt); err != nil {
			return errors.New("invalid captured_at; must be RFC3339")
		}
	}
	return nil
}

type ingestResponse struct {
	Status  IngestStatus `json:"status"`
	EventID string       `json:"event_id,omitempty"`
}

// HandleIngest handles POST /api/v1/events requests. The request runs the
// same debounce-then-commit path as the camera pipeline.
func (h *EventsHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	capturedAt := time.Now()
	if req.CapturedAt != "" {
		capturedAt, _ = time.Parse(time.RFC3339, req.CapturedAt)
	}

	result := h.deps.Ingest(r.Context(), IngestRequest{
		Name:       strings.TrimSpace(req.Name),
		Confidence: req.Confidence,
		CapturedAt: capturedAt,
		Location:   req.Location,
		Source:     req.Source,
	})
	switch result.Status {
	case IngestLowConfidence:
		writeError(w, http.StatusUnprocessableEntity, "low_confidence", ErrLowConfidence)
	case IngestSuppressed:
		writeJSON(w, http.StatusOK, ingestResponse{Status: IngestSuppressed})
	case IngestQueueFull:
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	default:
		writeJSON(w, http.StatusAccepted, ingestResponse{Status: IngestAccepted, EventID: result.EventID})
	}
}
