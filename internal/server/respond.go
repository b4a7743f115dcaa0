package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"darshanline/internal/app"
	"darshanline/pkg/store"
)

// envelope is the uniform response body. Success responses carry data and an
// optional message; failures carry error text and a stable machine code.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeMessage(w http.ResponseWriter, status int, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     msg,
		Code:      errorCode(status, msg),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeAppError maps application sentinels onto HTTP statuses. Unknown errors
// never leak details to the caller.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicateQueueEntry),
		errors.Is(err, store.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrCheckinCooldown),
		errors.Is(err, app.ErrOTPSendRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, app.ErrAlreadyCheckedIn),
		errors.Is(err, app.ErrOutsideCheckinWindow),
		errors.Is(err, app.ErrAppointmentNotOpen),
		errors.Is(err, app.ErrContactRequired),
		errors.Is(err, app.ErrGurujiRequired),
		errors.Is(err, app.ErrStartTimeInvalid),
		errors.Is(err, app.ErrTemplateRequired),
		errors.Is(err, app.ErrNotesRequired),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrNameRequired),
		errors.Is(err, app.ErrUnknownRole),
		errors.Is(err, app.ErrOTPChallengeInvalid),
		errors.Is(err, app.ErrOTPCodeInvalid),
		errors.Is(err, app.ErrOTPCodeExpired),
		errors.Is(err, app.ErrOTPCodeRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case strings.Contains(message, "verification code"),
		strings.Contains(message, "verification request"):
		return "AUTH_OTP_REJECTED"
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case strings.Contains(message, "slot"):
		return "APPOINTMENT_SLOT_TAKEN"
	case strings.Contains(message, "checked in"):
		return "CHECKIN_DUPLICATE"
	case strings.Contains(message, "check-in"):
		return "CHECKIN_REJECTED"
	case strings.Contains(message, "queue"):
		return "QUEUE_CONFLICT"
	case message == "invalid json body":
		return "REQUEST_INVALID_BODY"
	}
	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "AUTH_FORBIDDEN"
	case http.StatusNotFound:
		return "RESOURCE_NOT_FOUND"
	case http.StatusConflict:
		return "RESOURCE_CONFLICT"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

// page holds the slice window requested through ?page and ?limit.
type page struct {
	Page  int
	Limit int
}

type pageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func parsePage(r *http.Request) page {
	p := page{Page: 1, Limit: 50}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Page = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			p.Limit = v
		}
	}
	return p
}

// window returns the [start, end) slice bounds for a collection of n items
// together with the pagination metadata.
func (p page) window(n int) (int, int, pageMeta) {
	totalPages := (n + p.Limit - 1) / p.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	start := (p.Page - 1) * p.Limit
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end, pageMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      n,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
