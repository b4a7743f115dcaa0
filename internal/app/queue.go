package app

import (
	"fmt"
	"time"

	"darshanline/internal/events"
	"darshanline/internal/util"
	"darshanline/pkg/domain"
	"darshanline/pkg/store"
)

// MyQueueStatus returns the caller's open queue entry with a freshly
// estimated wait. The estimate is waiting-ahead times the practitioner's
// average service time today; the stored value is only rewritten when the
// estimate moved by more than five minutes.
func (a *App) MyQueueStatus(actor domain.User) (domain.QueueEntry, error) {
	entry, ok, err := a.store.GetActiveQueueEntryByUser(actor.ID)
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("fetch queue entry: %w", err)
	}
	if !ok {
		return domain.QueueEntry{}, ErrNotFound
	}
	if entry.Status != domain.QueueWaiting {
		return entry, nil
	}

	ahead, err := a.store.WaitingAheadCount(entry.GurujiID, entry.Position)
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("count waiting ahead: %w", err)
	}
	avg, err := a.store.AvgServiceMinutes(entry.GurujiID, time.Now().UTC())
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("average service time: %w", err)
	}
	if avg <= 0 {
		avg = domain.ServiceSlotMinutes
	}
	estimate := ahead * avg

	delta := estimate - entry.EstimatedWaitMinutes
	if delta < 0 {
		delta = -delta
	}
	if delta > domain.WaitWriteBackThresholdMin {
		if err := a.store.SetEstimatedWait(entry.ID, estimate); err != nil {
			return domain.QueueEntry{}, fmt.Errorf("update estimate: %w", err)
		}
	}
	entry.EstimatedWaitMinutes = estimate
	return entry, nil
}

// QueueBoard lists active entries for a practitioner in position order.
// Gurujis always see their own board regardless of the requested id.
func (a *App) QueueBoard(actor domain.User, gurujiID string) ([]domain.QueueEntry, error) {
	if actor.Role == domain.RoleGuruji {
		gurujiID = actor.ID
	} else if !domain.Can(actor.Role, domain.CapManageQueue) {
		return nil, ErrForbidden
	}
	if gurujiID == "" {
		return nil, ErrGurujiRequired
	}
	return a.store.ListActiveQueueByGuruji(gurujiID)
}

// TransitionQueueEntry moves an entry through the queue lifecycle. Gurujis
// may only operate on their own queue.
func (a *App) TransitionQueueEntry(actor domain.User, entryID string, target domain.QueueStatus) (domain.QueueEntry, error) {
	if !domain.Can(actor.Role, domain.CapManageQueue) {
		return domain.QueueEntry{}, ErrForbidden
	}
	entry, ok, err := a.store.GetQueueEntry(entryID)
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("fetch queue entry: %w", err)
	}
	if !ok {
		return domain.QueueEntry{}, ErrNotFound
	}
	if actor.Role == domain.RoleGuruji && entry.GurujiID != actor.ID {
		return domain.QueueEntry{}, ErrForbidden
	}

	now := time.Now().UTC()
	note := domain.Notification{
		ID:        util.NewID(),
		UserID:    entry.UserID,
		Title:     "Queue update",
		Message:   queueUpdateMessage(target),
		Type:      domain.NotifyQueueUpdate,
		Data:      map[string]string{"entryId": entry.ID, "status": string(target)},
		CreatedAt: now,
	}
	auditRow := domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "QUEUE_TRANSITION",
		Resource:   "queue_entry",
		ResourceID: entry.ID,
		CreatedAt:  now,
	}
	updated, err := a.store.TransitionQueueEntry(entry.ID, target, note, auditRow)
	if err != nil {
		switch err {
		case store.ErrIllegalTransition:
			return domain.QueueEntry{}, err
		case store.ErrNotFound:
			return domain.QueueEntry{}, ErrNotFound
		}
		return domain.QueueEntry{}, fmt.Errorf("transition queue entry: %w", err)
	}

	a.publish(events.QueueEvent{
		Type:     "transition",
		GurujiID: updated.GurujiID,
		EntryID:  updated.ID,
		Position: updated.Position,
		Status:   string(updated.Status),
	})
	return updated, nil
}

func queueUpdateMessage(target domain.QueueStatus) string {
	switch target {
	case domain.QueueInProgress:
		return "It is your turn. Please proceed to the darshan room."
	case domain.QueueCompleted:
		return "Your darshan is complete. Thank you for visiting."
	case domain.QueueCancelled:
		return "Your queue entry was cancelled."
	default:
		return "Your queue status changed."
	}
}
