package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSessionStore(t *testing.T, ttl time.Duration, revoker TokenRevoker) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStore("test-secret-0123456789", ttl, revoker, JWTOptions{})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	return s
}

func TestJWTSessionRoundTrip(t *testing.T) {
	s := newTestSessionStore(t, time.Hour, nil)
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("get user id: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("expected user-1, got %q ok=%v", userID, ok)
	}
}

func TestJWTSessionRejectsGarbage(t *testing.T) {
	s := newTestSessionStore(t, time.Hour, nil)
	if _, ok, err := s.GetUserIDByToken("not-a-token"); ok || err == nil {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.GetUserIDByToken(""); ok || err == nil {
		t.Fatalf("expected rejection of empty token, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionRejectsForeignSecret(t *testing.T) {
	a := newTestSessionStore(t, time.Hour, nil)
	b, err := NewJWTSessionStore("another-secret-entirely", time.Hour, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := a.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := b.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected signature mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionLogoutRevokes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revoker := NewRedisTokenRevoker(client)
	s := newTestSessionStore(t, time.Hour, revoker)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); !ok || err != nil {
		t.Fatalf("token should be valid before logout: ok=%v err=%v", ok, err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token should be rejected after logout")
	}
}

func TestMemoryTokenRevokerExpiry(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti-1", 50*time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected token revoked")
	}
	time.Sleep(60 * time.Millisecond)
	revoked, err = r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked after expiry: %v", err)
	}
	if revoked {
		t.Fatal("revocation should expire with the token")
	}
}
