// Package config loads gateway configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Datastores
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL,required,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Uploads and job submissions need a generous write timeout.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled          bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitUploadsPerMinute int     `env:"RATE_LIMIT_UPLOADS_PER_MINUTE" envDefault:"1"`
	RateLimitGlobalRPS        float64 `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"200"`

	// Comma-separated list of allowed origins
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Body limits in bytes: JSON requests and multipart uploads
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	MaxUploadSize      int64 `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"`

	// Workflow engine
	EngineURL           string `env:"ENGINE_URL" envDefault:"http://localhost:3020"`
	WorkflowDir         string `env:"WORKFLOW_DIR" envDefault:"/home/barapps/cromwell/summarization"`
	WorkflowCatalogFile string `env:"WORKFLOW_CATALOG_FILE" envDefault:""`

	// Local storage
	UploadDir string `env:"UPLOAD_DIR" envDefault:"/DATA/users/www-data"`
	DataDir   string `env:"DATA_DIR" envDefault:"./data/summarization"`

	// File-storage provider; listing is disabled when DriveListFile is empty
	DriveListKey  string `env:"DRIVE_LIST_KEY"`
	DriveListFile string `env:"DRIVE_LIST_FILE"`
	DriveAPIURL   string `env:"DRIVE_API_URL" envDefault:"https://www.googleapis.com"`

	// Honour X-Forwarded-For / X-Real-IP for client addresses. Loopback
	// checks always use the TCP peer.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// DriveListingEnabled reports whether the sealed provider key is configured.
func (c *Config) DriveListingEnabled() bool {
	return c.DriveListFile != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	var result []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.AppPort))
	}
	if u, err := url.Parse(c.EngineURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ENGINE_URL must be an absolute URL: %q", c.EngineURL))
	}
	if c.RateLimitUploadsPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_UPLOADS_PER_MINUTE must not be negative"))
	}
	if c.RateLimitGlobalRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GLOBAL_RPS must not be negative"))
	}
	if c.MaxRequestBodySize <= 0 || c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("body size limits must be positive"))
	}
	if c.DriveListingEnabled() && c.DriveListKey == "" {
		errs = append(errs, errors.New("DRIVE_LIST_KEY is required when DRIVE_LIST_FILE is set"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
