package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/molehit/molehit/internal/adapters/http/api"
	"github.com/molehit/molehit/internal/adapters/http/ws"
	"github.com/molehit/molehit/internal/adapters/repository"
	app "github.com/molehit/molehit/internal/app"
	"github.com/molehit/molehit/internal/config"
	"github.com/molehit/molehit/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel),
			logger.Error(err),
		)
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithTickInterval(time.Duration(cfg.TickIntervalMS) * time.Millisecond),
		app.WithHitHold(time.Duration(cfg.HitHoldMS) * time.Millisecond),
		app.WithMaxSessions(cfg.MaxSessions),
		app.WithEventBuffer(cfg.EventBufferSize),
	}
	if cfg.DBPath != "" {
		store, err := repository.NewSQLiteStore(ctx, cfg.DBPath)
		if err != nil {
			log.Error(ctx, "failed to open sqlite store", logger.Error(err))
			return
		}
		defer store.Close()
		opts = append(opts, app.WithStore(store))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	eventsHandler := ws.NewHandler(svc,
		ws.WithOriginPatterns(cfg.ClientOrigin),
		ws.WithLogger(log.Named("ws")),
	)
	apiServer := api.NewServer(svc, svc,
		api.WithJWTSecret(cfg.JWTSecret),
		api.WithClientOrigin(cfg.ClientOrigin),
		api.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		api.WithEventsHandler(eventsHandler),
		api.WithLogger(log.Named("api")),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}
