// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDSN is the SQLite data source name for the event store.
	DBDSN string `koanf:"db_dsn"`

	// SiteCacheTTLMS bounds how long a resolved site config is reused.
	SiteCacheTTLMS int `koanf:"site_cache_ttl_ms"`

	// TempEventRetention caps stored events per temp site.
	TempEventRetention int `koanf:"temp_event_retention"`

	// SweepIntervalMS is the period of the temp-site expiry sweep.
	// Zero disables the internal sweeper.
	SweepIntervalMS int `koanf:"sweep_interval_ms"`

	// MaxBodyBytes caps the collect request body size.
	MaxBodyBytes int `koanf:"max_body_bytes"`

	// MaxRecentLimit caps GET /api/sites/{siteKey}/events?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		DBDSN:              "file:pulse.db",
		SiteCacheTTLMS:     30_000,
		TempEventRetention: 50,
		SweepIntervalMS:    60_000,
		MaxBodyBytes:       64 << 10,
		MaxRecentLimit:     100,
	}
}
