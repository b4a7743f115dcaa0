package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"darshanline/internal/notify"
	"darshanline/internal/util"
	"darshanline/pkg/domain"
)

// OTPChallenge is returned to the client after a code was issued.
type OTPChallenge struct {
	ChallengeID    string `json:"challengeId"`
	ExpiresInSec   int    `json:"expiresInSec"`
	ResendAfterSec int    `json:"resendAfterSec"`
}

// RequestOTP issues a login code and hands it to the delivery channel
// matching the contact (email or SMS).
func (a *App) RequestOTP(ctx context.Context, contact string) (OTPChallenge, error) {
	challengeID, code, ttl, resend, err := a.otp.CreateChallenge(contact)
	if err != nil {
		return OTPChallenge{}, err
	}
	channel := "sms"
	if strings.Contains(contact, "@") {
		channel = "email"
	}
	msg := notify.Message{
		Channel:   channel,
		Recipient: strings.TrimSpace(strings.ToLower(contact)),
		Subject:   "Your darshan login code",
		Body:      fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, ttl/60),
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		return OTPChallenge{}, fmt.Errorf("send otp: %w", err)
	}
	return OTPChallenge{ChallengeID: challengeID, ExpiresInSec: ttl, ResendAfterSec: resend}, nil
}

// VerifyOTP validates the code, creates the devotee account on first login,
// and issues a session token. The very first account becomes admin.
func (a *App) VerifyOTP(challengeID, contact, code, name string) (domain.User, string, error) {
	if err := a.otp.VerifyChallenge(challengeID, contact, code); err != nil {
		return domain.User{}, "", err
	}
	contact = strings.TrimSpace(strings.ToLower(contact))
	user, ok, err := a.store.GetUserByContact(contact)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		role := domain.RoleUser
		count, err := a.store.UserCount()
		if err != nil {
			return domain.User{}, "", fmt.Errorf("count users: %w", err)
		}
		if count == 0 {
			role = domain.RoleAdmin
		}
		now := time.Now().UTC()
		user = domain.User{
			ID:        util.NewID(),
			Name:      strings.TrimSpace(name),
			Role:      role,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if strings.Contains(contact, "@") {
			user.Email = contact
		} else {
			user.Phone = contact
		}
		if user.Name == "" {
			user.Name = "Devotee"
		}
		if err := a.store.SaveUser(user); err != nil {
			return domain.User{}, "", fmt.Errorf("create user: %w", err)
		}
	}
	if !user.Active {
		return domain.User{}, "", ErrForbidden
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// UserByToken resolves a session token to its user.
func (a *App) UserByToken(token string) (domain.User, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.Active {
		return domain.User{}, ErrUnauthorized
	}
	return user, nil
}

// Logout revokes the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UpdateProfile changes the caller's display name.
func (a *App) UpdateProfile(user domain.User, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, ErrNameRequired
	}
	user.Name = name
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// ListUsers returns all accounts. Caller must hold CapManageUsers.
func (a *App) ListUsers(actor domain.User) ([]domain.User, error) {
	if !domain.Can(actor.Role, domain.CapManageUsers) {
		return nil, ErrForbidden
	}
	return a.store.ListUsers()
}

// ListGurujis returns active practitioners for the booking form.
func (a *App) ListGurujis() ([]domain.User, error) {
	return a.store.ListGurujis()
}

// SetUserRole changes a user's role and records an audit row.
func (a *App) SetUserRole(actor domain.User, userID, rawRole string) (domain.User, error) {
	if !domain.Can(actor.Role, domain.CapManageUsers) {
		return domain.User{}, ErrForbidden
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return domain.User{}, fmt.Errorf("%w %q", ErrUnknownRole, rawRole)
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	oldRole := user.Role
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	_ = a.store.AppendAuditLog(domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "ROLE_CHANGE",
		Resource:   "user",
		ResourceID: user.ID,
		OldValues:  map[string]string{"role": string(oldRole)},
		NewValues:  map[string]string{"role": string(role)},
		CreatedAt:  time.Now().UTC(),
	})
	return user, nil
}

// SetUserActive enables or disables an account.
func (a *App) SetUserActive(actor domain.User, userID string, active bool) (domain.User, error) {
	if !domain.Can(actor.Role, domain.CapManageUsers) {
		return domain.User{}, ErrForbidden
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	user.Active = active
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}
