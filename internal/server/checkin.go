package server

import (
	"net/http"
	"strings"

	"darshanline/pkg/domain"
)

func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req checkinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.QRPayload) == "" {
		writeError(w, http.StatusBadRequest, "qrPayload is required")
		return
	}
	entry, err := s.app.CheckinByQR(r.Context(), user, req.QRPayload)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, entry, "checked in")
}

func (s *Server) handleManualCheckin(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req manualCheckinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	entry, err := s.app.CheckinByCode(r.Context(), user, req.Code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, entry, "checked in")
}

type checkinRequest struct {
	QRPayload string `json:"qrPayload"`
}

type manualCheckinRequest struct {
	Code string `json:"code"`
}
