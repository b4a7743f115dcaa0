package app

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"darshanline/internal/notify"
	"darshanline/pkg/domain"
	"darshanline/pkg/store"
)

type captureSender struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (c *captureSender) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return nil
}

func (c *captureSender) last(t *testing.T) notify.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatal("no message sent")
	}
	return c.messages[len(c.messages)-1]
}

var codePattern = regexp.MustCompile(`\d{6}`)

func newAuthTestApp(t *testing.T) (*App, *captureSender, *store.MemoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	memStore := store.NewMemoryStore()
	sender := &captureSender{}
	a, err := New(Config{
		Store:           memStore,
		Redis:           redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		JWTSecret:       "test-secret-0123456789",
		SessionTTL:      time.Hour,
		QRSigningSecret: "qr-test-secret",
		Sender:          sender,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, sender, memStore
}

func TestOTPLoginCreatesFirstUserAsAdmin(t *testing.T) {
	a, sender, _ := newAuthTestApp(t)
	ctx := context.Background()

	challenge, err := a.RequestOTP(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if challenge.ChallengeID == "" || challenge.ExpiresInSec <= 0 {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	msg := sender.last(t)
	if msg.Channel != "email" || msg.Recipient != "asha@example.com" {
		t.Fatalf("unexpected delivery: %+v", msg)
	}
	code := codePattern.FindString(msg.Body)
	if code == "" {
		t.Fatalf("no code in message body: %q", msg.Body)
	}

	user, token, err := a.VerifyOTP(challenge.ChallengeID, "asha@example.com", code, "Asha")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("first user role = %s, want ADMIN", user.Role)
	}
	if user.Email != "asha@example.com" || user.Name != "Asha" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if token == "" {
		t.Fatal("no session token issued")
	}

	got, err := a.UserByToken(token)
	if err != nil {
		t.Fatalf("user by token: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("token resolves to %s, want %s", got.ID, user.ID)
	}
}

func TestOTPLoginSecondUserIsDevotee(t *testing.T) {
	a, sender, memStore := newAuthTestApp(t)
	ctx := context.Background()
	newTestUser(t, memStore, domain.RoleAdmin)

	challenge, err := a.RequestOTP(ctx, "+919876543210")
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	msg := sender.last(t)
	if msg.Channel != "sms" {
		t.Fatalf("expected sms delivery, got %s", msg.Channel)
	}
	code := codePattern.FindString(msg.Body)

	user, _, err := a.VerifyOTP(challenge.ChallengeID, "+919876543210", code, "")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("role = %s, want USER", user.Role)
	}
	if user.Phone != "+919876543210" {
		t.Fatalf("phone = %q", user.Phone)
	}
}

func TestOTPRejectsWrongCodeAndResendThrottle(t *testing.T) {
	a, _, _ := newAuthTestApp(t)
	ctx := context.Background()

	challenge, err := a.RequestOTP(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if _, _, err := a.VerifyOTP(challenge.ChallengeID, "asha@example.com", "000000", ""); !errors.Is(err, ErrOTPCodeInvalid) {
		t.Fatalf("expected ErrOTPCodeInvalid, got %v", err)
	}
	if _, err := a.RequestOTP(ctx, "asha@example.com"); !errors.Is(err, ErrOTPSendRateLimited) {
		t.Fatalf("expected resend throttle, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	a, sender, _ := newAuthTestApp(t)
	ctx := context.Background()

	challenge, _ := a.RequestOTP(ctx, "asha@example.com")
	code := codePattern.FindString(sender.last(t).Body)
	_, token, err := a.VerifyOTP(challenge.ChallengeID, "asha@example.com", code, "Asha")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if err := a.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := a.UserByToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestSetUserRoleRequiresCapability(t *testing.T) {
	a, _, memStore := newAuthTestApp(t)
	adminUser := newTestUser(t, memStore, domain.RoleAdmin)
	devotee := newTestUser(t, memStore, domain.RoleUser)

	updated, err := a.SetUserRole(adminUser, devotee.ID, "COORDINATOR")
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if updated.Role != domain.RoleCoordinator {
		t.Fatalf("role = %s, want COORDINATOR", updated.Role)
	}

	if _, err := a.SetUserRole(devotee, adminUser.ID, "USER"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := a.SetUserRole(adminUser, devotee.ID, "OVERLORD"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
