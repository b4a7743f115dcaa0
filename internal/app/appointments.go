package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"darshanline/internal/util"
	"darshanline/pkg/domain"
	"darshanline/pkg/qr"
)

// CreateAppointment books a darshan slot with a practitioner. The slot is
// 15 minutes; double-booking the same start time is rejected.
func (a *App) CreateAppointment(user domain.User, gurujiID string, start time.Time, reason, priority string) (domain.Appointment, error) {
	gurujiID = strings.TrimSpace(gurujiID)
	if gurujiID == "" {
		return domain.Appointment{}, ErrGurujiRequired
	}
	guruji, ok, err := a.store.GetUserByID(gurujiID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("fetch guruji: %w", err)
	}
	if !ok || guruji.Role != domain.RoleGuruji || !guruji.Active {
		return domain.Appointment{}, ErrNotFound
	}
	start = start.UTC().Truncate(time.Minute)
	if !start.After(time.Now().UTC()) {
		return domain.Appointment{}, ErrStartTimeInvalid
	}
	taken, err := a.store.HasSlotConflict(gurujiID, start)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return domain.Appointment{}, ErrSlotTaken
	}

	now := time.Now().UTC()
	appt := domain.Appointment{
		ID:          util.NewID(),
		UserID:      user.ID,
		GurujiID:    gurujiID,
		Date:        time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:   start,
		EndTime:     start.Add(domain.ServiceSlotMinutes * time.Minute),
		Status:      domain.AppointmentBooked,
		Priority:    strings.TrimSpace(priority),
		Reason:      strings.TrimSpace(reason),
		CheckinCode: shortCheckinCode(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	appt.QRCode = a.qr.Encode(appt.ID, user.ID, uuid.NewString())
	if err := a.store.SaveAppointment(appt); err != nil {
		return domain.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}

	_ = a.store.SaveNotification(domain.Notification{
		ID:        util.NewID(),
		UserID:    user.ID,
		Title:     "Appointment booked",
		Message:   fmt.Sprintf("Your darshan with %s is booked for %s.", guruji.Name, start.Format("02 Jan 2006 15:04 MST")),
		Type:      domain.NotifySystem,
		Data:      map[string]string{"appointmentId": appt.ID},
		CreatedAt: now,
	})
	_ = a.store.AppendAuditLog(domain.AuditLog{
		ID:         util.NewID(),
		UserID:     user.ID,
		Action:     "APPOINTMENT_CREATE",
		Resource:   "appointment",
		ResourceID: appt.ID,
		NewValues:  appt,
		CreatedAt:  now,
	})
	return appt, nil
}

// GetAppointment enforces that only the owner, the assigned practitioner, or
// staff can read an appointment.
func (a *App) GetAppointment(actor domain.User, id string) (domain.Appointment, error) {
	appt, ok, err := a.store.GetAppointment(id)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("fetch appointment: %w", err)
	}
	if !ok {
		return domain.Appointment{}, ErrNotFound
	}
	if !a.canSeeAppointment(actor, appt) {
		return domain.Appointment{}, ErrForbidden
	}
	return appt, nil
}

func (a *App) canSeeAppointment(actor domain.User, appt domain.Appointment) bool {
	if actor.ID == appt.UserID || actor.ID == appt.GurujiID {
		return true
	}
	return domain.Staff(actor.Role)
}

// ListAppointments is role-aware: devotees see their own bookings, gurujis
// their own day schedule, staff the schedule of the requested practitioner.
func (a *App) ListAppointments(actor domain.User, gurujiID string, day time.Time) ([]domain.Appointment, error) {
	switch {
	case actor.Role == domain.RoleGuruji:
		return a.store.ListAppointmentsByGuruji(actor.ID, day)
	case domain.Staff(actor.Role) && gurujiID != "":
		return a.store.ListAppointmentsByGuruji(gurujiID, day)
	default:
		return a.store.ListAppointmentsByUser(actor.ID)
	}
}

// CancelAppointment cancels a booking that has not entered the queue yet.
func (a *App) CancelAppointment(actor domain.User, id string) (domain.Appointment, error) {
	appt, ok, err := a.store.GetAppointment(id)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("fetch appointment: %w", err)
	}
	if !ok {
		return domain.Appointment{}, ErrNotFound
	}
	if actor.ID != appt.UserID && !domain.Staff(actor.Role) {
		return domain.Appointment{}, ErrForbidden
	}
	switch appt.Status {
	case domain.AppointmentBooked, domain.AppointmentConfirmed:
	default:
		return domain.Appointment{}, ErrAppointmentNotOpen
	}
	before := appt
	appt.Status = domain.AppointmentCancelled
	appt.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveAppointment(appt); err != nil {
		return domain.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}
	_ = a.store.AppendAuditLog(domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "APPOINTMENT_CANCEL",
		Resource:   "appointment",
		ResourceID: appt.ID,
		OldValues:  before,
		NewValues:  appt,
		CreatedAt:  time.Now().UTC(),
	})
	return appt, nil
}

// MarkNoShow closes out a booking whose visitor never arrived. Only staff
// managing the queue may flag it, and only before the visitor checked in.
func (a *App) MarkNoShow(actor domain.User, id string) (domain.Appointment, error) {
	if !domain.Can(actor.Role, domain.CapManageQueue) {
		return domain.Appointment{}, ErrForbidden
	}
	appt, ok, err := a.store.GetAppointment(id)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("fetch appointment: %w", err)
	}
	if !ok {
		return domain.Appointment{}, ErrNotFound
	}
	if actor.Role == domain.RoleGuruji && appt.GurujiID != actor.ID {
		return domain.Appointment{}, ErrForbidden
	}
	switch appt.Status {
	case domain.AppointmentBooked, domain.AppointmentConfirmed:
	default:
		return domain.Appointment{}, ErrAppointmentNotOpen
	}
	before := appt
	appt.Status = domain.AppointmentNoShow
	appt.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveAppointment(appt); err != nil {
		return domain.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}
	_ = a.store.AppendAuditLog(domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "APPOINTMENT_NO_SHOW",
		Resource:   "appointment",
		ResourceID: appt.ID,
		OldValues:  before,
		NewValues:  appt,
		CreatedAt:  time.Now().UTC(),
	})
	return appt, nil
}

// AppointmentQRPNG renders the signed check-in QR for the booking.
func (a *App) AppointmentQRPNG(actor domain.User, id string) ([]byte, error) {
	appt, err := a.GetAppointment(actor, id)
	if err != nil {
		return nil, err
	}
	return qr.PNG(appt.QRCode)
}

// shortCheckinCode is the human-readable fallback code shown on the booking.
func shortCheckinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
