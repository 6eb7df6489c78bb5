// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/rollcall/pkg/logger"
)

const liveWriteTimeout = 10 * time.Second

// LiveHandler pushes status snapshots and committed recognitions over a
// WebSocket connection.
type LiveHandler struct {
	deps     Dependencies
	refresh  time.Duration
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewLiveHandler creates a new live feed handler.
func NewLiveHandler(deps Dependencies, refresh time.Duration) *LiveHandler {
	if refresh <= 0 {
		refresh = DefaultLiveRefreshInterval
	}
	return &LiveHandler{
		deps:    deps,
		refresh: refresh,
		upgrader: websocket.Upgrader{
			// Cross-origin dashboards are allowed; the CORS layer already
			// scopes the rest of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.Named("live"),
	}
}

// HandleLive handles GET /live requests.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	updates, cancel := h.deps.Subscribe()
	defer cancel()

	// Drain client frames to notice the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(u LiveUpdate) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(u); err != nil {
			h.log.Debug(r.Context(), "live feed write failed", logger.Error(err))
			return false
		}
		return true
	}

	snap := h.deps.Snapshot(r.Context())
	if !send(LiveUpdate{Type: "status", Status: &snap}) {
		return
	}

	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			snap := h.deps.Snapshot(r.Context())
			if !send(LiveUpdate{Type: "status", Status: &snap}) {
				return
			}
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !send(u) {
				return
			}
		}
	}
}
