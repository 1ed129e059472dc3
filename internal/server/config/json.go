package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpenko/notesync/internal/flagx"
	"github.com/akarpenko/notesync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify token lifetimes either as strings like
// "15m" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	TokenSweepInterval           timex.Duration `json:"token_sweep_interval"`
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

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessTokenSecret = c.AccessTokenSecret
	config.RefreshTokenSecret = c.RefreshTokenSecret
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.TokenSweepInterval = time.Duration(c.TokenSweepInterval.Duration)
}
