package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.ServerURL, "http://localhost:8080")
	assert.Equal(t, c.DBPath, "notesync.db")
	assert.Equal(t, c.SyncInterval, 5*time.Minute)
	assert.Equal(t, c.RequestTimeout, 30*time.Second)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")
	assert.Equal(t, c.ServerURL, "http://localhost:8080")
	assert.Equal(t, c.SyncInterval, 5*time.Minute)
}
