package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"darshanline/pkg/domain"
)

func prescribeSetup(t *testing.T) (*App, domain.User, domain.User, domain.Appointment, domain.RemedyTemplate) {
	t.Helper()
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)

	tmpl, err := a.SaveRemedyTemplate(guruji, domain.RemedyTemplate{
		Name:         "Tulsi Decoction",
		Category:     "Herbal",
		Instructions: "Boil five leaves and drink warm.",
		Dosage:       "Twice daily",
		Duration:     "7 days",
	})
	if err != nil {
		t.Fatalf("save template: %v", err)
	}

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))
	entry, err := a.CheckinByQR(ctx, user, appt.QRCode)
	if err != nil {
		t.Fatalf("checkin: %v", err)
	}
	if _, err := a.TransitionQueueEntry(guruji, entry.ID, domain.QueueInProgress); err != nil {
		t.Fatalf("start consultation: %v", err)
	}
	return a, guruji, user, appt, tmpl
}

func TestPrescribeRendersAndDelivers(t *testing.T) {
	a, guruji, user, appt, tmpl := prescribeSetup(t)
	ctx := context.Background()

	doc, err := a.Prescribe(ctx, guruji, appt.ID, tmpl.ID, "Avoid cold drinks.")
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	if doc.UserID != user.ID || doc.GurujiID != guruji.ID || doc.TemplateName != tmpl.Name {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	rc, err := a.RemedyPDF(ctx, user, doc.ID)
	if err != nil {
		t.Fatalf("remedy pdf: %v", err)
	}
	defer rc.Close()
	head := make([]byte, 4)
	if _, err := io.ReadFull(rc, head); err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if string(head) != "%PDF" {
		t.Fatalf("stored object is not a pdf: %q", head)
	}

	mine, err := a.MyRemedies(user)
	if err != nil || len(mine) != 1 {
		t.Fatalf("my remedies: %v len=%d", err, len(mine))
	}
	if !mine[0].EmailSent && !mine[0].SMSSent {
		t.Fatal("remedy not marked delivered")
	}
	if mine[0].DeliveredAt == nil {
		t.Fatal("deliveredAt not set")
	}

	notes, err := a.ListNotifications(user, true)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	found := false
	for _, n := range notes {
		if n.Type == domain.NotifyRemedy {
			found = true
		}
	}
	if !found {
		t.Fatal("no remedy notification created")
	}
}

func TestPrescribePermissions(t *testing.T) {
	a, guruji, user, appt, tmpl := prescribeSetup(t)
	ctx := context.Background()

	if _, err := a.Prescribe(ctx, user, appt.ID, tmpl.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("devotee prescribe: expected ErrForbidden, got %v", err)
	}
	if _, err := a.Prescribe(ctx, guruji, appt.ID, "", ""); err == nil {
		t.Fatal("expected error for missing template")
	}
	if _, err := a.Prescribe(ctx, guruji, "missing-appt", tmpl.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemedyPDFAccessControl(t *testing.T) {
	a, guruji, _, appt, tmpl := prescribeSetup(t)
	ctx := context.Background()

	doc, err := a.Prescribe(ctx, guruji, appt.ID, tmpl.ID, "")
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}

	stranger := domain.User{ID: "stranger", Role: domain.RoleUser, Active: true}
	if _, err := a.RemedyPDF(ctx, stranger, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := a.RemedyPDF(ctx, guruji, doc.ID); err != nil {
		t.Fatalf("prescriber read: %v", err)
	}
}

func TestConsultationNotes(t *testing.T) {
	a, guruji, _, appt, _ := prescribeSetup(t)

	session, err := a.SetConsultationNotes(guruji, appt.ID, "Recommended morning walks.")
	if err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if !strings.Contains(session.Notes, "morning walks") {
		t.Fatalf("notes not saved: %q", session.Notes)
	}
	if _, err := a.SetConsultationNotes(guruji, appt.ID, "  "); !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired, got %v", err)
	}
}
