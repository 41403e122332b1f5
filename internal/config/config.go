// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIBaseURL    string `env:"FEED_API_URL" envDefault:"http://localhost:8000/api"`
	APITimeout    int    `env:"FEED_API_TIMEOUT" envDefault:"10"` // Upstream request timeout in seconds
	DBPath        string `env:"FEED_DB_PATH" envDefault:"./data/socialfeed.db"`
	SessionSecret string `env:"FEED_SESSION_SECRET,required"`
	ServerHost    string `env:"FEED_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"FEED_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"FEED_ENV" envDefault:"development"`
	LogLevel      string `env:"FEED_LOG_LEVEL" envDefault:"info"`
	SiteName      string `env:"FEED_SITE_NAME" envDefault:"Social Platform"`

	// Session configuration
	RedisURL          string `env:"FEED_REDIS_URL"`                            // Optional Redis URL for the session store
	SessionLifetime   int    `env:"FEED_SESSION_LIFETIME" envDefault:"24"`     // Session lifetime in hours
	SessionRevalidate int    `env:"FEED_SESSION_REVALIDATE" envDefault:"300"`  // Re-resolve the stored user after N seconds
	EventRetention    int    `env:"FEED_EVENT_RETENTION_DAYS" envDefault:"14"` // Days of local event log to keep

	// Upload configuration
	MaxUploadMB    int `env:"FEED_MAX_UPLOAD_MB" envDefault:"10"`
	ImageMaxWidth  int `env:"FEED_IMAGE_MAX_WIDTH" envDefault:"1920"`
	ImageMaxHeight int `env:"FEED_IMAGE_MAX_HEIGHT" envDefault:"1920"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisSessions returns true if sessions should be kept in Redis.
func (c Config) UseRedisSessions() bool {
	return c.RedisURL != ""
}

// UpstreamTimeout returns the REST API request timeout.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// SessionTTL returns the session cookie lifetime.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionLifetime) * time.Hour
}

// RevalidateAfter returns how long a resolved user snapshot is trusted.
func (c Config) RevalidateAfter() time.Duration {
	return time.Duration(c.SessionRevalidate) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("FEED_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("FEED_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FEED_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("FEED_API_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}

	if cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("FEED_API_TIMEOUT must be positive, got %d", cfg.APITimeout)
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("FEED_MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
