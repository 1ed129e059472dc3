package config

import (
	"flag"
	"os"
	"time"

	"github.com/akarpenko/notesync/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   server base URL
//	-b string   path to the local session database
//	-i int      automatic sync interval, seconds
//	-t int      HTTP request timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integer seconds.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerURL, "a", config.ServerURL, "server base URL")
	fs.StringVar(&config.DBPath, "b", config.DBPath, "path to local session database")

	syncInterval := fs.Int("i", int(config.SyncInterval.Seconds()), "automatic sync interval (in seconds)")
	requestTimeout := fs.Int("t", int(config.RequestTimeout.Seconds()), "http request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SyncInterval = time.Duration(*syncInterval) * time.Second
	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
