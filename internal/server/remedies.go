package server

import (
	"io"
	"net/http"
	"strings"

	"darshanline/pkg/domain"
)

func (s *Server) handleMyRemedies(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	remedies, err := s.app.MyRemedies(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": remedies,
		"count": len(remedies),
	})
}

func (s *Server) handleRemedyByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/user/remedies/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || action != "pdf" {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	pdf, err := s.app.RemedyPDF(r.Context(), user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer pdf.Close()
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, pdf)
}

func (s *Server) handleRemedyTemplates(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		templates, err := s.app.ListRemedyTemplates(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": templates,
			"count": len(templates),
		})
	case http.MethodPost:
		var req templateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Instructions) == "" {
			writeError(w, http.StatusBadRequest, "name and instructions are required")
			return
		}
		saved, err := s.app.SaveRemedyTemplate(user, domain.RemedyTemplate{
			ID:           req.ID,
			Name:         req.Name,
			Category:     req.Category,
			Instructions: req.Instructions,
			Dosage:       req.Dosage,
			Duration:     req.Duration,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeMessage(w, http.StatusCreated, saved, "template saved")
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePrescribe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req prescribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	doc, err := s.app.Prescribe(r.Context(), user, req.AppointmentID, req.TemplateID, req.CustomInstructions)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, doc, "remedy prescribed")
}

func (s *Server) handleConsultationNotes(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req consultationNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	session, err := s.app.SetConsultationNotes(user, req.AppointmentID, req.Notes)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type templateRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Instructions string `json:"instructions"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
}

type prescribeRequest struct {
	AppointmentID      string `json:"appointmentId"`
	TemplateID         string `json:"templateId"`
	CustomInstructions string `json:"customInstructions"`
}

type consultationNotesRequest struct {
	AppointmentID string `json:"appointmentId"`
	Notes         string `json:"notes"`
}
