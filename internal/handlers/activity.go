package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/notify"
	"github.com/diewo77/go-submittals/internal/services"
)

const (
	recentPending = 5
	recentEvents  = 20
)

// ActivityHandler serves the dashboard feed and its live event stream.
type ActivityHandler struct {
	submittals *services.SubmittalService
	events     *notify.EventLog
	hub        *notify.Hub
	keepAlive  time.Duration
}

// NewActivityHandler builds the handler. events and hub may be nil when
// the matching notifiers are not configured.
func NewActivityHandler(submittals *services.SubmittalService, events *notify.EventLog, hub *notify.Hub) *ActivityHandler {
	return &ActivityHandler{submittals: submittals, events: events, hub: hub, keepAlive: 25 * time.Second}
}

func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	pending, err := h.submittals.RecentPending(r.Context(), recentPending)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"pending": pending, "events": []any{}}
	if h.events != nil {
		events, err := h.events.Recent(r.Context(), recentEvents)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp["events"] = events
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Stream pushes workflow events as server-sent events until the client
// goes away.
func (h *ActivityHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if h.hub == nil || !ok {
		writeCode(w, r, http.StatusNotImplemented, "stream_unavailable")
		return
	}
	msgs, cancel := h.hub.Subscribe()
	defer cancel()

	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, open := <-msgs:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Payload)
			flusher.Flush()
		}
	}
}
