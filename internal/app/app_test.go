package app

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"darshanline/internal/util"
	"darshanline/pkg/domain"
	"darshanline/pkg/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	memStore := store.NewMemoryStore()
	a, err := New(Config{
		Store:           memStore,
		Redis:           redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		JWTSecret:       "test-secret-0123456789",
		SessionTTL:      time.Hour,
		QRSigningSecret: "qr-test-secret",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, memStore
}

func newTestUser(t *testing.T, s *store.MemoryStore, role domain.UserRole) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:        util.NewID(),
		Name:      "Test " + string(role),
		Phone:     "+91" + util.NewID()[:10],
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u
}

func bookAppointment(t *testing.T, a *App, user domain.User, gurujiID string, start time.Time) domain.Appointment {
	t.Helper()
	appt, err := a.CreateAppointment(user, gurujiID, start, "darshan", "")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}
