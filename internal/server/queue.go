package server

import (
	"net/http"
	"strings"

	"darshanline/pkg/domain"
)

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		entry, err := s.app.MyQueueStatus(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodPatch:
		var req queueTransitionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		target, ok := parseQueueStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		entry, err := s.app.TransitionQueueEntry(user, req.EntryID, target)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleQueueBoard(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.QueueBoard(user, r.URL.Query().Get("gurujiId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"count": len(entries),
	})
}

func parseQueueStatus(raw string) (domain.QueueStatus, bool) {
	switch domain.QueueStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.QueueWaiting:
		return domain.QueueWaiting, true
	case domain.QueueInProgress:
		return domain.QueueInProgress, true
	case domain.QueueCompleted:
		return domain.QueueCompleted, true
	case domain.QueueCancelled:
		return domain.QueueCancelled, true
	default:
		return "", false
	}
}

type queueTransitionRequest struct {
	EntryID string `json:"entryId"`
	Status  string `json:"status"`
}
