package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProgressSSE handles GET /sse/progress. It streams "progress" events with
// each new snapshot and "state" events after each workflow transition.
func (h *Handler) ProgressSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	snapshots := h.progress.Subscribe()
	defer h.progress.Unsubscribe(snapshots)
	states := h.workflow.Subscribe()
	defer h.workflow.Unsubscribe(states)

	// Send initial state
	h.sendJSON(w, flusher, "progress", h.progress.Snapshot())
	h.sendJSON(w, flusher, "state", h.stateResponse(h.workflow.State()))

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			h.sendJSON(w, flusher, "progress", snap)
		case st, ok := <-states:
			if !ok {
				return
			}
			h.sendJSON(w, flusher, "state", h.stateResponse(st))
		}
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, flusher http.Flusher, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	h.sendEvent(w, flusher, event, string(data))
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
