// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Each group reads variables under its own prefix, e.g. SERVER_PORT.
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Upload    UploadConfig    `envconfig:"UPLOAD"`
	Session   SessionConfig   `envconfig:"SESSION"`
	Pipeline  PipelineConfig  `envconfig:"PIPELINE"`
	Rate      RateLimitConfig `envconfig:"RATE"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
	Logging   LoggingConfig   `envconfig:"LOG"`
	Telemetry TelemetryConfig `envconfig:"TELEMETRY"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	Port int `envconfig:"PORT" default:"8080"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for
	// in-flight uploads to finish parsing
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one file in bytes (default: 100MB)
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"104857600"`

	// MaxFiles is the maximum number of files in one upload
	MaxFiles int `envconfig:"MAX_FILES" default:"20"`

	// MaxConcurrent is the number of files parsed at once across all sessions
	MaxConcurrent int           `envconfig:"MAX_CONCURRENT" default:"4"`
	MaxWait       time.Duration `envconfig:"MAX_WAIT" default:"30s"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long an unused session and its files are kept
	TTL        time.Duration `envconfig:"TTL" default:"1h"`
	CookieName string        `envconfig:"COOKIE" default:"datasweeper_session"`
}

// PipelineConfig holds display limits.
type PipelineConfig struct {
	PreviewRows  int `envconfig:"PREVIEW_ROWS" default:"5"`
	ChartMaxRows int `envconfig:"CHART_MAX_ROWS" default:"50"`
	PieMaxSlices int `envconfig:"PIE_MAX_SLICES" default:"10"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// RequestsPerMinute of 0 disables rate limiting
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"300"`
	Burst             int `envconfig:"BURST" default:"50"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// CORSOrigins lists origins allowed to call /api. Empty disables CORS.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `envconfig:"LEVEL" default:"info"`

	// Format is the log format: text or json
	Format string `envconfig:"FORMAT" default:"json"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool    `envconfig:"ENABLED" default:"true"`
	ServiceName string  `envconfig:"SERVICE_NAME" default:"datasweeper"`
	TraceStdout bool    `envconfig:"TRACE_STDOUT" default:"false"`
	SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
