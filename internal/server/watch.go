package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tuneboard/tuneboard/internal/models"
	"github.com/tuneboard/tuneboard/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// watchJob streams status envelopes over a websocket: one message per poll
// cadence, closing after the first terminal status. The dashboard uses this
// instead of HTTP polling when a live view is open.
func (h *handlers) watchJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Reject unknown jobs before upgrading so clients get a clean 404.
	if _, err := h.lifecycle.Status(r.Context(), id); errors.Is(err, store.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job_id", id, "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(h.watchInterval)
	defer ticker.Stop()

	// Push the current status immediately, then follow the cadence.
	for {
		status, err := h.lifecycle.Status(r.Context(), id)
		if err != nil {
			// Transient poll failures do not end the stream; the next
			// tick retries. The job itself has not failed.
			h.logger.Warn("watch poll failed", "job_id", id, "error", err)
		} else {
			data, err := models.MarshalStatus(status)
			if err != nil {
				h.logger.Error("encode status", "job_id", id, "error", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			if status.Terminal() {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(status.Kind())))
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
