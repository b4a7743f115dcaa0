package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"darshanline/pkg/domain"
)

// Dashboard is the coordinator/admin overview.
type Dashboard struct {
	Stats  domain.DayStats             `json:"stats"`
	Queues []domain.GurujiQueueSummary `json:"queues"`
}

// Dashboard aggregates same-day stats and per-practitioner queue summaries.
// The two aggregate reads run concurrently.
func (a *App) Dashboard(ctx context.Context, actor domain.User) (Dashboard, error) {
	if !domain.Can(actor.Role, domain.CapViewDashboard) {
		return Dashboard{}, ErrForbidden
	}
	var out Dashboard
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := a.store.DayStats(time.Now().UTC())
		if err != nil {
			return err
		}
		out.Stats = stats
		return nil
	})
	g.Go(func() error {
		queues, err := a.store.GurujiQueueSummaries()
		if err != nil {
			return err
		}
		out.Queues = queues
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

// AuditLogs returns recent audit rows for admins.
func (a *App) AuditLogs(actor domain.User, limit int) ([]domain.AuditLog, error) {
	if !domain.Can(actor.Role, domain.CapViewAudit) {
		return nil, ErrForbidden
	}
	return a.store.ListAuditLogs(limit)
}
