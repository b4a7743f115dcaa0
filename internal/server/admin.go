package server

import (
	"net/http"
	"strconv"
	"strings"

	"darshanline/pkg/domain"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	dashboard, err := s.app.Dashboard(r.Context(), user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	start, end, meta := parsePage(r).window(len(users))
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      users[start:end],
		"pagination": meta,
	})
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	var req adminUserPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	var (
		updated domain.User
		err     error
	)
	switch {
	case req.Role != "":
		updated, err = s.app.SetUserRole(user, id, req.Role)
	case req.Active != nil:
		updated, err = s.app.SetUserActive(user, id, *req.Active)
	default:
		writeError(w, http.StatusBadRequest, "role or active is required")
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	logs, err := s.app.AuditLogs(user, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": logs,
		"count": len(logs),
	})
}

type adminUserPatch struct {
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}
