// Package app holds the darshanline application services: authentication,
// appointment booking, queue management, remedies, notifications, and the
// coordinator dashboard.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"darshanline/internal/events"
	"darshanline/internal/notify"
	"darshanline/pkg/delivery"
	"darshanline/pkg/qr"
	"darshanline/pkg/storage"
	"darshanline/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	SessionTTL      time.Duration
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	JWTLeeway       time.Duration
	QRSigningSecret string

	// Injection points for tests; production wiring fills them from the
	// fields above.
	Store      store.Store
	Sessions   store.SessionStore
	Redis      *redis.Client
	Objects    storage.ObjectStore
	Sender     notify.Sender
	Events     events.Publisher
	Deliveries *delivery.RedisDeliveryQueue
}

// App wires storage, sessions, and delivery together.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	redis      *redis.Client
	otp        *otpStore
	qr         *qr.Signer
	objects    storage.ObjectStore
	sender     notify.Sender
	events     events.Publisher
	deliveries *delivery.RedisDeliveryQueue
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	redisClient := cfg.Redis
	if redisClient == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required")
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		revoker := store.NewRedisTokenRevoker(redisClient)
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessionStore = jwtStore
	}

	if strings.TrimSpace(cfg.QRSigningSecret) == "" {
		return nil, fmt.Errorf("qrSigningSecret is required")
	}

	objects := cfg.Objects
	if objects == nil {
		objects = storage.NewMemoryObjectStore()
	}
	sender := cfg.Sender
	if sender == nil {
		sender = notify.LogSender{}
	}

	return &App{
		store:      dataStore,
		sessions:   sessionStore,
		redis:      redisClient,
		otp:        newOTPStore(redisClient),
		qr:         qr.NewSigner(cfg.QRSigningSecret),
		objects:    objects,
		sender:     sender,
		events:     cfg.Events,
		deliveries: cfg.Deliveries,
	}, nil
}

// Store exposes the persistence layer for server-side wiring.
func (a *App) Store() store.Store { return a.store }

// Sessions exposes the session store for server-side wiring.
func (a *App) Sessions() store.SessionStore { return a.sessions }

func (a *App) publish(event events.QueueEvent) {
	if a.events != nil {
		a.events.Publish(event)
	}
}
