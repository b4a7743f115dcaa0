package server

import (
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"darshanline/internal/app"
	"darshanline/internal/events"
	"darshanline/internal/ratelimit"
	"darshanline/internal/util"
	"darshanline/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Hub            *events.Hub
	AuthLimiter    *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes the HTTP and websocket surface of the darshan line.
type Server struct {
	app         *app.App
	hub         *events.Hub
	authLimiter *ratelimit.FixedWindowLimiter
	proxies     *util.TrustedProxies
	mux         *http.ServeMux

	started    time.Time
	routeHits  sync.Map
	errorCount atomic.Int64
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:         cfg.App,
		hub:         cfg.Hub,
		authLimiter: cfg.AuthLimiter,
		proxies:     cfg.TrustedProxies,
		mux:         http.NewServeMux(),
		started:     time.Now().UTC(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("darshanline", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.Handle("/api/auth/otp/request", s.counted(s.withAuthLimit(http.HandlerFunc(s.handleOTPRequest))))
	s.mux.Handle("/api/auth/otp/verify", s.counted(s.withAuthLimit(http.HandlerFunc(s.handleOTPVerify))))
	s.mux.Handle("/api/auth/logout", s.counted(http.HandlerFunc(s.handleLogout)))
	s.mux.Handle("/api/users/me", s.counted(s.withUser(s.handleMe)))
	s.mux.Handle("/api/gurujis", s.counted(s.withUser(s.handleGurujis)))

	// appointments and check-in
	s.mux.Handle("/api/appointments", s.counted(s.withUser(s.handleAppointments)))
	s.mux.Handle("/api/appointments/", s.counted(s.withUser(s.handleAppointmentByID)))
	s.mux.Handle("/api/checkin", s.counted(s.withUser(s.handleCheckin)))
	s.mux.Handle("/api/checkin/manual", s.counted(s.withUser(s.handleManualCheckin)))

	// queue
	s.mux.Handle("/api/queue", s.counted(s.withUser(s.handleQueue)))
	s.mux.Handle("/api/queue/board", s.counted(s.withUser(s.handleQueueBoard)))

	// notifications
	s.mux.Handle("/api/notifications", s.counted(s.withUser(s.handleNotifications)))
	s.mux.Handle("/api/notifications/mark-all-read", s.counted(s.withUser(s.handleMarkAllRead)))
	s.mux.Handle("/api/notifications/", s.counted(s.withUser(s.handleNotificationByID)))

	// remedies
	s.mux.Handle("/api/user/remedies", s.counted(s.withUser(s.handleMyRemedies)))
	s.mux.Handle("/api/user/remedies/", s.counted(s.withUser(s.handleRemedyByID)))
	s.mux.Handle("/api/remedies/templates", s.counted(s.withUser(s.handleRemedyTemplates)))
	s.mux.Handle("/api/remedies/prescribe", s.counted(s.withUser(s.handlePrescribe)))
	s.mux.Handle("/api/consultations/notes", s.counted(s.withUser(s.handleConsultationNotes)))

	// coordinator and admin
	s.mux.Handle("/api/dashboard", s.counted(s.withUser(s.handleDashboard)))
	s.mux.Handle("/api/admin/users", s.counted(s.withUser(s.handleAdminUsers)))
	s.mux.Handle("/api/admin/users/", s.counted(s.withUser(s.handleAdminUserByID)))
	s.mux.Handle("/api/admin/audit", s.counted(s.withUser(s.handleAuditLogs)))
	s.mux.Handle("/api/metrics", s.counted(s.withUser(s.handleMetrics)))

	// realtime queue board
	s.mux.HandleFunc("/ws/queue/", s.handleQueueSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.UserByToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// withAuthLimit throttles unauthenticated endpoints per client address.
func (s *Server) withAuthLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authLimiter != nil && !s.authLimiter.Allow(util.ClientIP(r, s.proxies)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// counted tracks per-route hit and error totals for the metrics snapshot.
func (s *Server) counted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, _ := s.routeHits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		counter.(*atomic.Int64).Add(1)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusInternalServerError {
			s.errorCount.Add(1)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !domain.Can(user.Role, domain.CapViewMetrics) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	routes := map[string]int64{}
	s.routeHits.Range(func(key, value any) bool {
		routes[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	writeJSON(w, http.StatusOK, metricsSnapshot{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		ServerErrors:  s.errorCount.Load(),
		RouteHits:     routes,
	})
}

type metricsSnapshot struct {
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Goroutines    int              `json:"goroutines"`
	ServerErrors  int64            `json:"serverErrors"`
	RouteHits     map[string]int64 `json:"routeHits"`
}
