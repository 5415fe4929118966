package config

import (
	"errors"
	"time"
)

// Config holds runtime settings for the authkeeper CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API, e.g. http://127.0.0.1:8000.
//   - SessionDBPath: SQLite file holding the persisted access token.
//   - RequestTimeout: per-request HTTP timeout.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - LogLevel: debug, info, warn or error; logs go to stderr.
type Config struct {
	ServerURL      string
	SessionDBPath  string
	RequestTimeout time.Duration
	LogLevel       string

	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.SessionDBPath = "session.db"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
	c.OnlineCheckInterval = 3 * time.Second
}

// Validate reports settings the client cannot run with. A zero
// OnlineCheckInterval disables the reachability watcher.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.OnlineCheckInterval < 0 {
		return errors.New("online check interval must not be negative")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. It panics on an invalid result.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
