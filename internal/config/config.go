package config

import (
	"time"

	"github.com/kundliinsight/kundli/internal/ailink"
)

// Config represents the complete application configuration.
// Values are layered in this order, later layers winning:
// Layer 1: built-in defaults (defaults.go)
// Layer 2: config file (~/.config/kundli/config.yaml, ./config.yaml or --config)
// Layer 3: environment variables (.env is read first) and runtime overrides
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	Guidance  GuidanceConfig  `mapstructure:"guidance"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Site      SiteConfig      `mapstructure:"site"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustProxy derives the client address from X-Forwarded-For / X-Real-IP.
	// Leave off unless the server sits behind a proxy that sets them.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// SignalToken enables POST /admin/signal for bearer-authenticated
	// reload and shutdown requests. Empty disables the endpoint.
	SignalToken string `mapstructure:"signal_token"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// GuidanceConfig tunes the single generation call made per reading.
type GuidanceConfig struct {
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
}

// RateLimitConfig is the fixed window applied per client to interpretations.
type RateLimitConfig struct {
	MaxRequests   int           `mapstructure:"max_requests"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AuthConfig contains admin session settings.
type AuthConfig struct {
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`

	// LoginRate is the sustained login attempts per second allowed per address.
	LoginRate  float64 `mapstructure:"login_rate"`
	LoginBurst int     `mapstructure:"login_burst"`
}

// SiteConfig is the public site metadata served to the frontend and sitemap.
type SiteConfig struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Keywords    []string `mapstructure:"keywords"`
	BaseURL     string   `mapstructure:"base_url"`
}

// UploadsConfig controls admin image uploads.
type UploadsConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxBytes     int64  `mapstructure:"max_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
// - ENTERPRISE: Multiple sinks, middleware, throttling, policy enforcement (production)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
