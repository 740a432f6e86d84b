// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars on top.
// - External errors must be wrapped via this package's error sentinels.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath points at the sqlite database file. Empty selects the
	// in-memory session store.
	DBPath string `koanf:"db_path"`

	// TickIntervalMS is the cadence of the per-session game tick.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// HitHoldMS is how long a hit target stays on the board for display.
	HitHoldMS int `koanf:"hit_hold_ms"`

	// MaxSessions bounds the number of concurrently live sessions.
	MaxSessions int `koanf:"max_sessions"`

	// EventBufferSize bounds the per-subscriber event buffer.
	EventBufferSize int `koanf:"event_buffer_size"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// JWTSecret verifies bearer tokens issued by the identity provider.
	// Requests without a valid token play as guests.
	JWTSecret string `koanf:"jwt_secret"`

	// ClientOrigin is the browser origin allowed for CORS and websocket upgrades.
	ClientOrigin string `koanf:"client_origin"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8090",
		DBPath:          "",
		TickIntervalMS:  100,
		HitHoldMS:       300,
		MaxSessions:     1000,
		EventBufferSize: 256,
		MaxHistoryLimit: 100,
		JWTSecret:       "",
		ClientOrigin:    "http://localhost:5173",
	}
}
