package serve

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleDeploymentEvents streams the progress of one deployment as
// Server-Sent Events. The stream ends once the deployment is finished.
func (s *Server) handleDeploymentEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "depID")

	// Subscribe before reading the record so no update falls in between.
	ch := s.deploys.events.Subscribe(id)
	if ch == nil {
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}
	defer s.deploys.events.Unsubscribe(ch)

	d, err := s.store.GetDeployment(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	send := func(ev DeploymentEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}

	send(DeploymentEvent{Type: "snapshot", Deployment: d})
	if d.Done() {
		return
	}

	// Heartbeat to keep the connection alive
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				// The broker closed the stream. If the final event was
				// dropped, the stored record still has the outcome.
				if last, err := s.store.GetDeployment(id); err == nil && last.Done() && !d.Done() {
					send(DeploymentEvent{Type: "updated", Deployment: last})
				}
				return
			}
			d = ev.Deployment
			send(ev)
			if ev.Deployment.Done() {
				return
			}
		}
	}
}
