// Package config loads environment-driven configuration for the cleaner.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the untrack daemon.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Control API settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Engine behavior
	SessionTTLSeconds int
	DecisionTimeoutMS int
	ResyncIntervalMS  int
	NavigateTimeoutMS int

	// Storage settings (feature flag + decision journal)
	DataDir              string
	JournalBufferSize    int
	JournalMaxFileSizeMB int

	// Notification endpoint (empty disables notifications)
	NtfyEndpoint string

	// Optional browser launch
	LaunchBrowser     bool
	BrowserProfileDir string
	BrowserStartURL   string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:           getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:              getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		BindAddr:             getEnvOrDefault("UNTRACK_BIND_ADDR", "127.0.0.1:8199"),
		PortCandidates:       splitList(getEnvOrDefault("UNTRACK_PORT_CANDIDATES", "127.0.0.1:8199,127.0.0.1:8299,127.0.0.1:8399")),
		PortAutoFallback:     getEnvBoolOrDefault("UNTRACK_PORT_AUTO_FALLBACK", true),
		SessionTTLSeconds:    getEnvIntOrDefault("UNTRACK_SESSION_TTL_SECONDS", 15),
		DecisionTimeoutMS:    getEnvIntOrDefault("UNTRACK_DECISION_TIMEOUT_MS", 2000),
		ResyncIntervalMS:     getEnvIntOrDefault("UNTRACK_RESYNC_INTERVAL_MS", 5000),
		NavigateTimeoutMS:    getEnvIntOrDefault("UNTRACK_NAVIGATE_TIMEOUT_MS", 15000),
		DataDir:              getEnvOrDefault("UNTRACK_DATA_DIR", "./untrack_data"),
		JournalBufferSize:    getEnvIntOrDefault("UNTRACK_JOURNAL_BUFFER_SIZE", 256),
		JournalMaxFileSizeMB: getEnvIntOrDefault("UNTRACK_JOURNAL_MAX_FILE_SIZE_MB", 50),
		NtfyEndpoint:         getEnvOrDefault("UNTRACK_NTFY_ENDPOINT", ""),
		LaunchBrowser:        getEnvBoolOrDefault("UNTRACK_LAUNCH_BROWSER", false),
		BrowserProfileDir:    getEnvOrDefault("UNTRACK_BROWSER_PROFILE_DIR", "./untrack_profile"),
		BrowserStartURL:      getEnvOrDefault("UNTRACK_BROWSER_START_URL", "https://mail.google.com/"),
		LogLevel:             strings.ToLower(getEnvOrDefault("UNTRACK_LOG_LEVEL", "info")),
		LogFile:              getEnvOrDefault("UNTRACK_LOG_FILE", "logs/untrackd.log"),
	}

	if cfg.SessionTTLSeconds < 1 {
		cfg.SessionTTLSeconds = 1
	}
	if cfg.DecisionTimeoutMS < 100 {
		cfg.DecisionTimeoutMS = 100
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by both browser clients.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
