// Package config loads configuration from environment variables and
// locates the per-user config files.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds all client configuration.
type Config struct {
	// Auth
	ClientID  string // app registration used for the device-code flow
	Tenant    string // AAD tenant, "common" unless pinned
	TokenPath string

	// Remote API
	GraphBaseURL string
	HTTPTimeout  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Mappings
	MappingsPath string
}

// Load reads configuration from environment variables with defaults.
// ClientID may be empty; commands that need sign-in check it themselves so
// detection-only commands work unconfigured.
func Load() *Config {
	dir := ConfigDir()

	return &Config{
		ClientID:     envOr("ONEDRIVE_VERSIONS_CLIENT_ID", ""),
		Tenant:       envOr("ONEDRIVE_VERSIONS_TENANT", "common"),
		TokenPath:    envOr("ONEDRIVE_VERSIONS_TOKEN_PATH", filepath.Join(dir, "token.json")),
		GraphBaseURL: envOr("ONEDRIVE_VERSIONS_GRAPH_URL", ""),
		HTTPTimeout:  envDuration("ONEDRIVE_VERSIONS_HTTP_TIMEOUT", 30*time.Second),
		LogLevel:     envOr("ONEDRIVE_VERSIONS_LOG_LEVEL", "warn"),
		LogFormat:    envOr("ONEDRIVE_VERSIONS_LOG_FORMAT", "console"),
		MappingsPath: envOr("ONEDRIVE_VERSIONS_MAPPINGS", filepath.Join(dir, "mappings.json")),
	}
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "onedrive-versions")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "onedrive-versions")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
