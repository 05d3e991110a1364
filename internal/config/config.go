// Package config holds the daemon-level settings read from the viper
// config file. Per-pair configuration lives in the store, not here.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// AuthEntry is a globally configured credential for one endpoint host,
// used by pairs that do not embed their own credentials.
type AuthEntry struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Settings are the daemon-wide options.
type Settings struct {
	DBPath   string      `mapstructure:"db_path"`
	LogLevel string      `mapstructure:"log_level"`
	Timeout  string      `mapstructure:"timeout"` // duration string, e.g. "30s"
	Auth     []AuthEntry `mapstructure:"auth"`
}

// Load unmarshals the currently loaded viper configuration.
func Load() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// RequestTimeout parses the configured timeout, defaulting to 30s.
func (s Settings) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ResolveDBPath returns the configured database path or the standard OS
// data directory fallback.
func (s Settings) ResolveDBPath() string {
	if s.DBPath != "" {
		return s.DBPath
	}

	var dataDir string
	if os.Getenv("OS") == "Windows_NT" {
		dataDir = filepath.Join(os.Getenv("ProgramData"), "DavSync")
	} else {
		dataDir = "/var/lib/davsync"
	}
	if os.Geteuid() != 0 && os.Getenv("OS") != "Windows_NT" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataDir = filepath.Join(home, ".local", "share", "davsync")
		}
	}
	return filepath.Join(dataDir, "state.db")
}
