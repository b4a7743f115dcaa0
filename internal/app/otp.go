package app

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"darshanline/internal/util"
)

var (
	ErrOTPSendRateLimited  = errors.New("too many verification code requests")
	ErrOTPChallengeInvalid = errors.New("verification request is invalid")
	ErrOTPCodeInvalid      = errors.New("incorrect verification code")
	ErrOTPCodeExpired      = errors.New("verification code expired")
	ErrOTPCodeRequired     = errors.New("verification code is required")
)

// otpStore keeps login challenges in Redis. Codes are bcrypt-hashed and a
// SetNX key throttles resends per contact.
type otpStore struct {
	client            *redis.Client
	keyPrefix         string
	challengeTTL      time.Duration
	challengePersist  time.Duration
	resendAfter       time.Duration
	maxVerifyAttempts int
}

type otpChallenge struct {
	ID         string    `json:"id"`
	Contact    string    `json:"contact"`
	CodeHash   string    `json:"codeHash"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Attempts   int       `json:"attempts"`
	MaxAttempt int       `json:"maxAttempt"`
}

func newOTPStore(client *redis.Client) *otpStore {
	challengeTTL := 5 * time.Minute
	return &otpStore{
		client:            client,
		keyPrefix:         "darshan:auth:otp",
		challengeTTL:      challengeTTL,
		challengePersist:  challengeTTL + time.Minute,
		resendAfter:       time.Minute,
		maxVerifyAttempts: 5,
	}
}

// CreateChallenge issues a new code for the contact. Returns the challenge
// id, the plain code for delivery, and the ttl/resend windows in seconds.
func (s *otpStore) CreateChallenge(contact string) (string, string, int, int, error) {
	contact, err := normalizeContact(contact)
	if err != nil {
		return "", "", 0, 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resendKey := s.resendKey(contact)
	allowed, err := s.client.SetNX(ctx, resendKey, "1", s.resendAfter).Result()
	if err != nil {
		return "", "", 0, 0, err
	}
	if !allowed {
		return "", "", 0, 0, ErrOTPSendRateLimited
	}

	code, err := generateNumericCode(6)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("generate otp code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("hash otp code: %w", err)
	}
	challengeID := util.NewID()
	challenge := otpChallenge{
		ID:         challengeID,
		Contact:    contact,
		CodeHash:   string(codeHash),
		ExpiresAt:  time.Now().UTC().Add(s.challengeTTL),
		MaxAttempt: s.maxVerifyAttempts,
	}
	raw, err := json.Marshal(challenge)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("marshal otp challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.challengeKey(challengeID), raw, s.challengePersist).Err(); err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, err
	}
	return challengeID, code, int(s.challengeTTL.Seconds()), int(s.resendAfter.Seconds()), nil
}

// VerifyChallenge burns the challenge on success; wrong codes count against a
// small attempt budget.
func (s *otpStore) VerifyChallenge(challengeID, contact, code string) error {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ErrOTPChallengeInvalid
	}
	contact, err := normalizeContact(contact)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrOTPCodeRequired
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := s.challengeKey(challengeID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrOTPChallengeInvalid
	}
	if err != nil {
		return err
	}
	var challenge otpChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return fmt.Errorf("unmarshal otp challenge: %w", err)
	}
	if challenge.ID == "" || challenge.Contact != contact {
		return ErrOTPChallengeInvalid
	}
	if time.Now().UTC().After(challenge.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return ErrOTPCodeExpired
	}
	if challenge.Attempts >= challenge.MaxAttempt {
		_ = s.client.Del(ctx, key).Err()
		return ErrOTPChallengeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		challenge.Attempts++
		if challenge.Attempts >= challenge.MaxAttempt {
			_ = s.client.Del(ctx, key).Err()
		} else {
			raw, marshalErr := json.Marshal(challenge)
			if marshalErr == nil {
				ttl, ttlErr := s.client.TTL(ctx, key).Result()
				if ttlErr == nil && ttl > 0 {
					_ = s.client.Set(ctx, key, raw, ttl).Err()
				}
			}
		}
		return ErrOTPCodeInvalid
	}
	return s.client.Del(ctx, key).Err()
}

func (s *otpStore) challengeKey(challengeID string) string {
	return fmt.Sprintf("%s:challenge:%s", s.keyPrefix, challengeID)
}

func (s *otpStore) resendKey(contact string) string {
	return fmt.Sprintf("%s:resend:%s", s.keyPrefix, contact)
}

// normalizeContact accepts an email address or an E.164-ish phone number.
func normalizeContact(contact string) (string, error) {
	contact = strings.TrimSpace(strings.ToLower(contact))
	if contact == "" {
		return "", ErrContactRequired
	}
	if strings.Contains(contact, "@") {
		if _, err := mail.ParseAddress(contact); err != nil {
			return "", errors.New("email format is invalid")
		}
		return contact, nil
	}
	cleaned := strings.TrimPrefix(contact, "+")
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return "", errors.New("phone format is invalid")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", errors.New("phone format is invalid")
		}
	}
	return contact, nil
}

func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
