package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/session"
)

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// streamSessionEvents streams engine events until the client
// disconnects or the session reaches a terminal event. The current
// status is sent first so late subscribers see where the session
// stands.
func streamSessionEvents(w http.ResponseWriter, r *http.Request, engine *session.Engine) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventCh := engine.Events().AddListener()
	defer engine.Events().RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", engine.Status())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
			if event.Type == session.EventFinished || (event.Type == session.EventError && event.State == session.StateFailed) {
				return
			}
		}
	}
}
