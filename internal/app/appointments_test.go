package app

import (
	"errors"
	"testing"
	"time"

	"darshanline/pkg/domain"
)

func TestCreateAppointmentRejectsSlotConflict(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	first := newTestUser(t, memStore, domain.RoleUser)
	second := newTestUser(t, memStore, domain.RoleUser)
	start := time.Now().UTC().Add(3 * time.Hour)

	appt := bookAppointment(t, a, first, guruji.ID, start)
	if appt.CheckinCode == "" || appt.QRCode == "" {
		t.Fatalf("appointment missing codes: %+v", appt)
	}
	if appt.Status != domain.AppointmentBooked {
		t.Fatalf("status = %s, want BOOKED", appt.Status)
	}

	if _, err := a.CreateAppointment(second, guruji.ID, start, "", ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// Cancelling frees the slot.
	if _, err := a.CancelAppointment(first, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := a.CreateAppointment(second, guruji.ID, start, "", ""); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)

	if _, err := a.CreateAppointment(user, "", time.Now().Add(time.Hour), "", ""); !errors.Is(err, ErrGurujiRequired) {
		t.Fatalf("expected ErrGurujiRequired, got %v", err)
	}
	if _, err := a.CreateAppointment(user, guruji.ID, time.Now().Add(-time.Hour), "", ""); !errors.Is(err, ErrStartTimeInvalid) {
		t.Fatalf("expected ErrStartTimeInvalid, got %v", err)
	}
	if _, err := a.CreateAppointment(user, user.ID, time.Now().Add(time.Hour), "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-guruji target, got %v", err)
	}
}

func TestCancelAppointmentPermissionsAndState(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	stranger := newTestUser(t, memStore, domain.RoleUser)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))

	if _, err := a.CancelAppointment(stranger, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	cancelled, err := a.CancelAppointment(user, appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.AppointmentCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}
	if _, err := a.CancelAppointment(user, appt.ID); !errors.Is(err, ErrAppointmentNotOpen) {
		t.Fatalf("expected ErrAppointmentNotOpen, got %v", err)
	}
}

func TestAppointmentQRPNG(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	stranger := newTestUser(t, memStore, domain.RoleUser)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))
	png, err := a.AppointmentQRPNG(user, appt.ID)
	if err != nil {
		t.Fatalf("qr png: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("empty png")
	}
	if _, err := a.AppointmentQRPNG(stranger, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListAppointmentsRoleAware(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)
	start := time.Now().UTC().Add(time.Hour)

	bookAppointment(t, a, user, guruji.ID, start)

	own, err := a.ListAppointments(user, "", start)
	if err != nil || len(own) != 1 {
		t.Fatalf("own list: %v len=%d", err, len(own))
	}
	schedule, err := a.ListAppointments(guruji, "", start)
	if err != nil || len(schedule) != 1 {
		t.Fatalf("guruji schedule: %v len=%d", err, len(schedule))
	}
	staffView, err := a.ListAppointments(coordinator, guruji.ID, start)
	if err != nil || len(staffView) != 1 {
		t.Fatalf("staff view: %v len=%d", err, len(staffView))
	}
}

func TestMarkNoShow(t *testing.T) {
	a, memStore := newTestApp(t)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	otherGuruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))

	if _, err := a.MarkNoShow(user, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("visitor no-show: expected ErrForbidden, got %v", err)
	}
	if _, err := a.MarkNoShow(otherGuruji, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign guruji no-show: expected ErrForbidden, got %v", err)
	}
	marked, err := a.MarkNoShow(coordinator, appt.ID)
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if marked.Status != domain.AppointmentNoShow {
		t.Fatalf("status = %s, want NO_SHOW", marked.Status)
	}
	if _, err := a.MarkNoShow(coordinator, appt.ID); !errors.Is(err, ErrAppointmentNotOpen) {
		t.Fatalf("repeat no-show: expected ErrAppointmentNotOpen, got %v", err)
	}
}
