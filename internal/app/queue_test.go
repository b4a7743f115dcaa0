package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"darshanline/pkg/domain"
	"darshanline/pkg/store"
)

func TestQueueTransitionMirrorsAppointment(t *testing.T) {
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))
	entry, err := a.CheckinByQR(ctx, user, appt.QRCode)
	if err != nil {
		t.Fatalf("checkin: %v", err)
	}

	started, err := a.TransitionQueueEntry(guruji, entry.ID, domain.QueueInProgress)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != domain.QueueInProgress || started.StartedAt == nil {
		t.Fatalf("unexpected entry after start: %+v", started)
	}
	if got, _, _ := memStore.GetAppointment(appt.ID); got.Status != domain.AppointmentInProgress {
		t.Fatalf("appointment status = %s, want IN_PROGRESS", got.Status)
	}

	done, err := a.TransitionQueueEntry(guruji, entry.ID, domain.QueueCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("completedAt not set")
	}
	if got, _, _ := memStore.GetAppointment(appt.ID); got.Status != domain.AppointmentCompleted {
		t.Fatalf("appointment status = %s, want COMPLETED", got.Status)
	}
}

func TestQueueTransitionPermissions(t *testing.T) {
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	otherGuruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))
	entry, err := a.CheckinByQR(ctx, user, appt.QRCode)
	if err != nil {
		t.Fatalf("checkin: %v", err)
	}

	if _, err := a.TransitionQueueEntry(user, entry.ID, domain.QueueInProgress); !errors.Is(err, ErrForbidden) {
		t.Fatalf("devotee transition: expected ErrForbidden, got %v", err)
	}
	if _, err := a.TransitionQueueEntry(otherGuruji, entry.ID, domain.QueueInProgress); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign guruji transition: expected ErrForbidden, got %v", err)
	}
	if _, err := a.TransitionQueueEntry(coordinator, entry.ID, domain.QueueInProgress); err != nil {
		t.Fatalf("coordinator transition: %v", err)
	}
	if _, err := a.TransitionQueueEntry(coordinator, entry.ID, domain.QueueWaiting); !errors.Is(err, store.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestMyQueueStatusRecomputesWait(t *testing.T) {
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	first := newTestUser(t, memStore, domain.RoleUser)
	second := newTestUser(t, memStore, domain.RoleUser)
	start := time.Now().UTC().Add(time.Hour)

	apptOne := bookAppointment(t, a, first, guruji.ID, start)
	apptTwo := bookAppointment(t, a, second, guruji.ID, start.Add(domain.ServiceSlotMinutes*time.Minute))
	entryOne, err := a.CheckinByQR(ctx, first, apptOne.QRCode)
	if err != nil {
		t.Fatalf("first checkin: %v", err)
	}
	if _, err := a.CheckinByQR(ctx, second, apptTwo.QRCode); err != nil {
		t.Fatalf("second checkin: %v", err)
	}

	// Second in line: one WAITING entry ahead, default 15 min service time.
	status, err := a.MyQueueStatus(second)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.EstimatedWaitMinutes != 15 {
		t.Fatalf("wait = %d, want 15", status.EstimatedWaitMinutes)
	}

	// Once the first entry starts, nobody WAITING is ahead anymore.
	if _, err := a.TransitionQueueEntry(guruji, entryOne.ID, domain.QueueInProgress); err != nil {
		t.Fatalf("start first: %v", err)
	}
	status, err = a.MyQueueStatus(second)
	if err != nil {
		t.Fatalf("status after start: %v", err)
	}
	if status.EstimatedWaitMinutes != 0 {
		t.Fatalf("wait = %d, want 0", status.EstimatedWaitMinutes)
	}

	if _, err := a.MyQueueStatus(guruji); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for user without entry, got %v", err)
	}
}

func TestQueueBoardVisibility(t *testing.T) {
	a, memStore := newTestApp(t)
	ctx := context.Background()
	guruji := newTestUser(t, memStore, domain.RoleGuruji)
	user := newTestUser(t, memStore, domain.RoleUser)
	coordinator := newTestUser(t, memStore, domain.RoleCoordinator)

	appt := bookAppointment(t, a, user, guruji.ID, time.Now().UTC().Add(time.Hour))
	if _, err := a.CheckinByQR(ctx, user, appt.QRCode); err != nil {
		t.Fatalf("checkin: %v", err)
	}

	board, err := a.QueueBoard(guruji, "ignored")
	if err != nil {
		t.Fatalf("guruji board: %v", err)
	}
	if len(board) != 1 || board[0].GurujiID != guruji.ID {
		t.Fatalf("unexpected guruji board: %+v", board)
	}

	board, err = a.QueueBoard(coordinator, guruji.ID)
	if err != nil {
		t.Fatalf("coordinator board: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("unexpected coordinator board: %+v", board)
	}

	if _, err := a.QueueBoard(user, guruji.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for devotee, got %v", err)
	}
}
