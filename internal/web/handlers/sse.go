package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/photo-curator/internal/logging"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

// setupSSEConnection sets the event stream headers. On failure it writes an
// error response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// EventsHandler streams published recommendations to SSE clients
type EventsHandler struct {
	manager *recommend.Manager
	logger  *slog.Logger
}

// NewEventsHandler creates an events handler
func NewEventsHandler(manager *recommend.Manager, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{manager: manager, logger: logging.OrDefault(logger)}
}

// Stream sends a "connected" event followed by one "recommendation" event
// per completed group until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	events, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()

	sendSSEEvent(w, flusher, "connected", map[string]string{"status": "ok"})
	h.logger.Debug("event stream opened", "remote", sanitizeForLog(r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			return
		case rec, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "recommendation", rec)
		}
	}
}
