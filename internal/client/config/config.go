// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the NoteSync client.
//
// Fields:
//   - ServerURL: base URL of the sync server.
//   - DBPath: path to the local bbolt file holding the session.
//   - SyncInterval: period of the automatic sync timer.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL      string
	DBPath         string
	SyncInterval   time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.DBPath = "notesync.db"
	c.SyncInterval = 5 * time.Minute
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
