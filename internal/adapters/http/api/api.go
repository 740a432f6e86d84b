// Package api declares HTTP contracts and route registration for the
// game engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	service "github.com/molehit/molehit/internal/app"
	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/reconcile"
	"github.com/molehit/molehit/internal/domain/scoring"
	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
	"github.com/molehit/molehit/pkg/metrics"
)

const (
	defaultMaxHistoryLimit = 100
	defaultClientOrigin    = "http://localhost:5173"
	requestTimeout         = 10 * time.Second
)

// Dependencies required by the HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StartSession(ctx context.Context, levelID int, userID string) (session.View, error)
	GetSession(ctx context.Context, id string) (session.View, error)
	ActiveSession(ctx context.Context, userID string) (session.View, error)
	PauseSession(ctx context.Context, id string) (session.View, error)
	ResumeSession(ctx context.Context, id string) (session.View, error)
	EndSession(ctx context.Context, id string) (session.View, error)
	ResetSession(ctx context.Context, id string) (session.View, error)
	HandleKey(ctx context.Context, id string, key rune) (*scoring.HitResult, error)

	Levels(ctx context.Context) ([]level.Definition, error)
	Level(ctx context.Context, id int) (level.Definition, error)

	History(ctx context.Context, userID string, limit, offset int) ([]session.CompletedSession, error)
	BestScore(ctx context.Context, userID string, levelID int) (session.CompletedSession, error)
	CompletedSession(ctx context.Context, sessionID string) (session.CompletedSession, error)
}

// StatsProvider exposes service statistics for monitoring.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the game API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	jwtSecret       string
	clientOrigin    string
	maxHistoryLimit int
	events          http.Handler
	log             logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithJWTSecret enables bearer-token authentication with the secret.
func WithJWTSecret(secret string) Option {
	return func(s *Server) { s.jwtSecret = secret }
}

// WithClientOrigin sets the CORS origin for the browser client.
func WithClientOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.clientOrigin = origin
		}
	}
}

// WithMaxHistoryLimit caps the page size of history queries.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithEventsHandler mounts a live event-stream handler on
// GET /sessions/{id}/events.
func WithEventsHandler(h http.Handler) Option {
	return func(s *Server) { s.events = h }
}

// WithLogger sets the server's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		stats:           stats,
		clientOrigin:    defaultClientOrigin,
		maxHistoryLimit: defaultMaxHistoryLimit,
		log:             logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with the full middleware stack and all
// routes attached. The event stream, if any, sits outside the request
// timeout because its connections are long-lived.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware(s.clientOrigin))
	r.Use(s.optionalAuth())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.With(MetricsMiddleware("healthz")).Get("/healthz", s.handleHealth)
		r.With(MetricsMiddleware("stats")).Get("/stats", s.handleStats)
		r.Handle("/metrics", metrics.Handler())

		r.Route("/levels", func(r chi.Router) {
			r.With(MetricsMiddleware("levels")).Get("/", s.handleListLevels)
			r.With(MetricsMiddleware("level")).Get("/{id}", s.handleGetLevel)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(MetricsMiddleware("create_session")).Post("/", s.handleCreateSession)
			r.With(MetricsMiddleware("active_session"), s.requireAuth()).Get("/active", s.handleActiveSession)
			r.Route("/{id}", func(r chi.Router) {
				r.With(MetricsMiddleware("get_session")).Get("/", s.handleGetSession)
				r.With(MetricsMiddleware("pause_session")).Post("/pause", s.handlePauseSession)
				r.With(MetricsMiddleware("resume_session")).Post("/resume", s.handleResumeSession)
				r.With(MetricsMiddleware("end_session")).Post("/end", s.handleEndSession)
				r.With(MetricsMiddleware("reset_session")).Post("/reset", s.handleResetSession)
				r.With(MetricsMiddleware("session_keys")).Post("/keys", s.handleKeys)
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.Use(s.requireAuth())
			r.With(MetricsMiddleware("history")).Get("/", s.handleHistory)
			r.With(MetricsMiddleware("history_best")).Get("/best", s.handleBestScore)
		})
	})

	if s.events != nil {
		r.With(MetricsMiddleware("session_events")).Get("/sessions/{id}/events", s.events.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, level.ErrNotFound),
		errors.Is(err, reconcile.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, session.ErrAlreadyEnded):
		writeError(w, http.StatusConflict, "already_ended", Wrap(op, err))
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", Wrap(op, err))
	case errors.Is(err, reconcile.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already_completed", Wrap(op, err))
	case errors.Is(err, reconcile.ErrInvalidResult):
		writeError(w, http.StatusUnprocessableEntity, "invalid_result", Wrap(op, err))
	case errors.Is(err, service.ErrSessionLimit):
		writeError(w, http.StatusTooManyRequests, "session_limit", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// handleHealth handles GET /healthz requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats handles GET /stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}
