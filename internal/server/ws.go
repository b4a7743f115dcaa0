package server

import (
	"net/http"
	"strings"
)

// handleQueueSocket upgrades a live queue-board subscription. Browsers cannot
// set Authorization headers on websocket dials, so the session token may also
// arrive as a query parameter.
func (s *Server) handleQueueSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime updates unavailable")
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := s.app.UserByToken(token); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gurujiID := strings.TrimPrefix(r.URL.Path, "/ws/queue/")
	if gurujiID == "" || strings.Contains(gurujiID, "/") {
		notFound(w, "not found")
		return
	}
	s.hub.Subscribe(w, r, gurujiID)
}
