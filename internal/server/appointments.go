package server

import (
	"net/http"
	"strings"
	"time"

	"darshanline/pkg/domain"
)

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListAppointments(w, r, user)
	case http.MethodPost:
		s.handleCreateAppointment(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request, user domain.User) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	appointments, err := s.app.ListAppointments(user, r.URL.Query().Get("gurujiId"), day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	start, end, meta := parsePage(r).window(len(appointments))
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      appointments[start:end],
		"pagination": meta,
	})
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startTime must be RFC 3339")
		return
	}
	appt, err := s.app.CreateAppointment(user, req.GurujiID, start, req.Reason, req.Priority)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, appt, "appointment booked")
}

func (s *Server) handleAppointmentByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/appointments/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		notFound(w, "not found")
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		appt, err := s.app.GetAppointment(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case action == "qr" && r.Method == http.MethodGet:
		png, err := s.app.AppointmentQRPNG(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	case action == "cancel" && r.Method == http.MethodPost:
		appt, err := s.app.CancelAppointment(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, appt, "appointment cancelled")
	case action == "no-show" && r.Method == http.MethodPost:
		appt, err := s.app.MarkNoShow(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, appt, "appointment marked as no-show")
	case action == "" || action == "qr" || action == "cancel" || action == "no-show":
		methodNotAllowed(w)
	default:
		notFound(w, "not found")
	}
}

type createAppointmentRequest struct {
	GurujiID  string `json:"gurujiId"`
	StartTime string `json:"startTime"`
	Reason    string `json:"reason"`
	Priority  string `json:"priority"`
}
