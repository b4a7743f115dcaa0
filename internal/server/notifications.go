package server

import (
	"net/http"
	"strings"

	"darshanline/pkg/domain"
)

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		unreadOnly := r.URL.Query().Get("unread") == "true"
		notes, err := s.app.ListNotifications(user, unreadOnly)
		if err != nil {
			writeAppError(w, err)
			return
		}
		start, end, meta := parsePage(r).window(len(notes))
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      notes[start:end],
			"pagination": meta,
		})
	case http.MethodPost:
		var req createNotificationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		note, err := s.app.CreateNotification(user, req.UserID, req.Title, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeMessage(w, http.StatusCreated, note, "notification created")
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	n, err := s.app.MarkAllNotificationsRead(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleNotificationByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		note, err := s.app.MarkNotificationRead(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	case http.MethodDelete:
		if err := s.app.DeleteNotification(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, nil, "notification deleted")
	default:
		methodNotAllowed(w)
	}
}

type createNotificationRequest struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
