package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nao1215/swiftguard/internal/notify"
)

// handleEvents streams every notification as a server-sent event named by
// its action. ?commands=only limits the stream to host commands, which is
// what the extension shell subscribes to; ?commands=none drops them.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming not supported"})
		return
	}
	filter := r.URL.Query().Get("commands")

	sub := s.hub.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if !wanted(filter, msg) {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("failed to encode notification", "action", msg.Action, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Action, data)
			flusher.Flush()
		}
	}
}

func wanted(filter string, msg notify.Message) bool {
	switch filter {
	case "only":
		return msg.IsHostCommand()
	case "none":
		return !msg.IsHostCommand()
	default:
		return true
	}
}
