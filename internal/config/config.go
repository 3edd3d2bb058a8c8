// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles,
// optionally seeded from a local .env file during development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Endpoints holds the addresses of the remote user service.
// Each operation is deployed as its own function, so each has its own URL.
type Endpoints struct {
	ListURL    string `env:"GET_USERS_URL" envDefault:"https://getusers-eljsamlcia-uc.a.run.app" validate:"required,url"`
	GetByIDURL string `env:"GET_USER_BY_ID_URL" envDefault:"https://getuserbyid-eljsamlcia-uc.a.run.app" validate:"required,url"`
	CreateURL  string `env:"CREATE_USER_URL" envDefault:"https://createuser-eljsamlcia-uc.a.run.app" validate:"required,url"`
	UpdateURL  string `env:"UPDATE_USER_URL" envDefault:"https://updateuser-eljsamlcia-uc.a.run.app" validate:"required,url"`
	DeleteURL  string `env:"DELETE_USER_URL" envDefault:"https://deleteuser-eljsamlcia-uc.a.run.app" validate:"required,url"`
}

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080" validate:"min=1,max=65535"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Remote user service
	Endpoints Endpoints
	// TransportTimeout bounds a single remote call. Zero means no timeout.
	TransportTimeout time.Duration `env:"TRANSPORT_TIMEOUT" envDefault:"0s" validate:"gte=0"`

	// Dashboard sessions
	NotificationTTL      time.Duration `env:"NOTIFICATION_TTL" envDefault:"5s" validate:"gt=0"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m" validate:"gt=0"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m" validate:"gt=0"`
	SessionCookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// Cache (Redis), optional. Mutation rate limiting is disabled without it.
	RedisURL string `env:"REDIS_URL"`

	// Rate limiting of mutating console actions, per session
	RateLimitEnabled       bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitMutationRPS   int  `env:"RATE_LIMIT_MUTATION_RPS" envDefault:"5" validate:"gte=0"`
	RateLimitMutationBurst int  `env:"RATE_LIMIT_MUTATION_BURST" envDefault:"10" validate:"gte=0"`

	// CORS configuration for the JSON state endpoint
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 64KB, forms are small)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536" validate:"gt=0"`

	// Observability
	MetricsEnabled  bool   `env:"METRICS_ENABLED" envDefault:"true"`
	OTelEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"userdash-console"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// TracingEnabled reports whether an OTLP collector is configured.
func (c *Config) TracingEnabled() bool {
	return c.OTelEndpoint != ""
}

// Load reads an optional .env file, parses environment variables and
// validates the result.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped;
// variables already present in the environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
