// Package ws streams live session events to browser clients over a
// websocket. One connection follows one session; the client receives a
// state snapshot on connect and every gameplay event from then on.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/molehit/molehit/internal/adapters/events"
	service "github.com/molehit/molehit/internal/app"
	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
)

const writeTimeout = 5 * time.Second

// Dependencies required by the websocket handler.
type Dependencies interface {
	GetSession(ctx context.Context, id string) (session.View, error)
	Subscribe(ctx context.Context, id string) (*events.Subscriber, error)
}

// Handler upgrades GET /sessions/{id}/events to a websocket stream.
type Handler struct {
	deps           Dependencies
	originPatterns []string
	log            logger.Logger
}

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithOriginPatterns restricts which origins may connect.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) {
		if len(patterns) > 0 {
			h.originPatterns = patterns
		}
	}
}

// WithLogger sets the handler's logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler creates a websocket handler over the given dependencies.
func NewHandler(deps Dependencies, opts ...Option) *Handler {
	h := &Handler{
		deps:           deps,
		originPatterns: []string{"*"},
		log:            logger.Get().Named("ws"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// snapshotMessage is the first frame on every stream.
type snapshotMessage struct {
	Type    string       `json:"type"`
	Session session.View `json:"session"`
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.deps.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn(r.Context(), "websocket accept",
			logger.String("session_id", id),
			logger.Error(err),
		)
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream aborted")

	sub, err := h.deps.Subscribe(r.Context(), id)
	if err != nil {
		c.Close(websocket.StatusTryAgainLater, "subscribe failed")
		return
	}
	defer sub.Close()

	// CloseRead consumes control frames and cancels the context when the
	// client goes away.
	ctx := c.CloseRead(r.Context())

	if err := h.write(ctx, c, snapshotMessage{Type: "snapshot", Session: view}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				c.Close(websocket.StatusNormalClosure, "stream closed")
				return
			}
			if err := h.write(ctx, c, ev); err != nil {
				return
			}
			if ev.Type == session.EventSessionEnded {
				c.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, c *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c, v)
}
