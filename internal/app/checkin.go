package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"darshanline/internal/events"
	"darshanline/internal/util"
	"darshanline/pkg/domain"
	"darshanline/pkg/store"
)

// CheckinByQR admits the devotee into the practitioner's queue from a scanned
// QR payload. Devotees can only scan their own booking; staff can scan any.
func (a *App) CheckinByQR(ctx context.Context, actor domain.User, payload string) (domain.QueueEntry, error) {
	decoded, err := a.qr.Decode(payload)
	if err != nil {
		return domain.QueueEntry{}, ErrNotFound
	}
	appt, ok, err := a.store.GetAppointment(decoded.AppointmentID)
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("fetch appointment: %w", err)
	}
	if !ok || appt.UserID != decoded.UserID {
		return domain.QueueEntry{}, ErrNotFound
	}
	if actor.ID != appt.UserID && !domain.Can(actor.Role, domain.CapManualCheckin) {
		return domain.QueueEntry{}, ErrForbidden
	}
	return a.admit(ctx, actor, appt)
}

// CheckinByCode is the staff-assisted path using the short booking code.
func (a *App) CheckinByCode(ctx context.Context, actor domain.User, code string) (domain.QueueEntry, error) {
	if !domain.Can(actor.Role, domain.CapManualCheckin) {
		return domain.QueueEntry{}, ErrForbidden
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.QueueEntry{}, ErrNotFound
	}
	appt, ok, err := a.store.GetAppointmentByCheckinCode(code)
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("fetch appointment: %w", err)
	}
	if !ok {
		return domain.QueueEntry{}, ErrNotFound
	}
	return a.admit(ctx, actor, appt)
}

func (a *App) admit(ctx context.Context, actor domain.User, appt domain.Appointment) (domain.QueueEntry, error) {
	switch appt.Status {
	case domain.AppointmentBooked, domain.AppointmentConfirmed:
	case domain.AppointmentCheckedIn, domain.AppointmentInProgress:
		return domain.QueueEntry{}, ErrAlreadyCheckedIn
	default:
		return domain.QueueEntry{}, ErrAppointmentNotOpen
	}

	now := time.Now().UTC()
	if appt.StartTime.Sub(now) > domain.CheckinWindow || now.Sub(appt.StartTime) > domain.CheckinWindow {
		return domain.QueueEntry{}, ErrOutsideCheckinWindow
	}

	// A short SetNX cooldown absorbs double-taps and repeated scans.
	cooldownKey := "darshan:checkin:cooldown:" + appt.ID
	acquired, err := a.redis.SetNX(ctx, cooldownKey, "1", domain.CheckinCooldown).Result()
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("checkin cooldown: %w", err)
	}
	if !acquired {
		return domain.QueueEntry{}, ErrCheckinCooldown
	}

	entry := domain.QueueEntry{
		ID:            util.NewID(),
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		GurujiID:      appt.GurujiID,
		Priority:      appt.Priority,
		CheckedInAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	note := domain.Notification{
		ID:        util.NewID(),
		UserID:    appt.UserID,
		Title:     "Checked in",
		Message:   "You have joined the darshan queue.",
		Type:      domain.NotifyCheckin,
		Data:      map[string]string{"appointmentId": appt.ID},
		CreatedAt: now,
	}
	auditRow := domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "CHECKIN",
		Resource:   "queue_entry",
		ResourceID: entry.ID,
		CreatedAt:  now,
	}
	admitted, err := a.store.AdmitToQueue(entry, note, auditRow)
	if err != nil {
		if err == store.ErrDuplicateQueueEntry {
			return domain.QueueEntry{}, ErrAlreadyCheckedIn
		}
		return domain.QueueEntry{}, fmt.Errorf("admit to queue: %w", err)
	}

	a.publish(events.QueueEvent{
		Type:     "checkin",
		GurujiID: admitted.GurujiID,
		EntryID:  admitted.ID,
		Position: admitted.Position,
		Status:   string(admitted.Status),
	})
	return admitted, nil
}
