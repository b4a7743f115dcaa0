package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"darshanline/pkg/domain"
)

func TestDashboardAggregates(t *testing.T) {
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)
	first := newTestUser(t, memStore, domain.RoleUser)
	second := newTestUser(t, memStore, domain.RoleUser)
	start := time.Now().UTC().Add(time.Hour)

	apptOne := bookAppointment(t, a, first, guruji.ID, start)
	bookAppointment(t, a, second, guruji.ID, start.Add(domain.ServiceSlotMinutes*time.Minute))
	if _, err := a.CheckinByQR(ctx, first, apptOne.QRCode); err != nil {
		t.Fatalf("checkin: %v", err)
	}

	dash, err := a.Dashboard(ctx, coordinator)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Stats.TotalAppointments != 2 {
		t.Fatalf("total = %d, want 2", dash.Stats.TotalAppointments)
	}
	if dash.Stats.CheckedIn != 1 || dash.Stats.Pending != 1 || dash.Stats.Waiting != 1 {
		t.Fatalf("unexpected stats: %+v", dash.Stats)
	}
	if len(dash.Queues) != 1 || dash.Queues[0].GurujiID != guruji.ID || dash.Queues[0].Waiting != 1 {
		t.Fatalf("unexpected queues: %+v", dash.Queues)
	}

	if _, err := a.Dashboard(ctx, first); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for devotee, got %v", err)
	}
}

func TestAuditLogsRequireCapability(t *testing.T) {
	a, memStore := newTestApp(t)
	adminUser := newTestUser(t, memStore, domain.RoleAdmin)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)

	bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))

	logs, err := a.AuditLogs(adminUser, 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if len(logs) == 0 {
		t.Fatal("expected at least one audit row")
	}
	if _, err := a.AuditLogs(coordinator, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for coordinator, got %v", err)
	}
}

func TestNotificationsLifecycle(t *testing.T) {
	a, memStore := newTestApp(t)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)
	user := newTestUser(t, memStore, domain.RoleUser)
	other := newTestUser(t, memStore, domain.RoleUser)

	note, err := a.CreateNotification(coordinator, user.ID, "Hall change", "Darshan moved to the east hall.")
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if _, err := a.CreateNotification(coordinator, other.ID, "Hall change", "Darshan moved to the east hall."); err != nil {
		t.Fatalf("create notification for other: %v", err)
	}
	if _, err := a.CreateNotification(user, coordinator.ID, "x", "y"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	unread, err := a.ListNotifications(user, true)
	if err != nil || len(unread) != 1 {
		t.Fatalf("unread: %v len=%d", err, len(unread))
	}

	if _, err := a.MarkNotificationRead(coordinator, note.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign mark read: expected ErrForbidden, got %v", err)
	}
	read, err := a.MarkNotificationRead(user, note.ID)
	if err != nil || !read.Read {
		t.Fatalf("mark read: %v read=%v", err, read.Read)
	}

	if n, err := a.MarkAllNotificationsRead(user); err != nil || n != 0 {
		t.Fatalf("mark all after read: n=%d err=%v", n, err)
	}
	if unread, err := a.ListNotifications(other, true); err != nil || len(unread) != 1 {
		t.Fatalf("other user's unread after mark all: %v len=%d", err, len(unread))
	}
	if err := a.DeleteNotification(user, note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if all, _ := a.ListNotifications(user, false); len(all) != 0 {
		t.Fatalf("expected empty list, got %d", len(all))
	}
}
