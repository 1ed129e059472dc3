package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpenko/notesync/internal/flagx"
	"github.com/akarpenko/notesync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5m"
// or as integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DBPath         string         `json:"db_path"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The JSON file path is taken from the -c/-config command-line flags; when
// neither is set, no JSON is loaded. Read or unmarshal failures panic; the
// intended order is defaults -> parseJson -> parseFlags, later stages
// overriding earlier ones.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.ServerURL = c.ServerURL
	config.DBPath = c.DBPath
	config.SyncInterval = time.Duration(c.SyncInterval.Duration)
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
}
