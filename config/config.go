package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"fieldservice-backend/logger"
)

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	Port           string        `env:"PORT,default=8080"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=*"`
	BodyLimitBytes int           `env:"BODY_LIMIT_BYTES,default=0"`
	BodyLimitMB    int           `env:"BODY_LIMIT_MB,default=4"`
	RateLimitMax   int           `env:"RATE_LIMIT_MAX,default=60"`
	RateLimitWin   time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`

	DBHost     string `env:"DB_HOST,default=db"`
	DBPort     int    `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE,default=disable"`

	JWTSecret    string        `env:"JWT_SECRET_KEY"`
	PortalSecret string        `env:"PORTAL_SECRET"`
	PortalTTL    time.Duration `env:"PORTAL_LINK_TTL,default=168h"`
	PortalURL    string        `env:"PORTAL_BASE_URL,default=http://localhost:3000/portal"`

	EmailAPIURL string `env:"EMAIL_API_URL,default=https://api.resend.com"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM,default=notifications@example.com"`

	SMSAPIURL     string  `env:"SMS_API_URL,default=https://api.twilio.com"`
	SMSAccountSID string  `env:"SMS_ACCOUNT_SID"`
	SMSAuthToken  string  `env:"SMS_AUTH_TOKEN"`
	SMSFrom       string  `env:"SMS_FROM"`
	SMSRatePerSec float64 `env:"SMS_RATE_PER_SECOND,default=5"`

	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	RedisURL string `env:"REDIS_URL"`

	OverdueSchedule string `env:"OVERDUE_SWEEP_SCHEDULE,default=@every 1h"`

	LogLevel      string `env:"LOG_LEVEL,default=info"`
	LogFormat     string `env:"LOG_FORMAT,default=console"`
	LogTimeFormat string `env:"LOG_TIME_FORMAT,default=2006-01-02T15:04:05Z07:00"`
	LogOutput     string `env:"LOG_OUTPUT,default=stdout"`
}

// Load reads .env (optional) and decodes the environment into a Config.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.DBUser == "" || c.DBName == "" {
		return errors.New("DB_USER and DB_NAME are required")
	}
	if c.PortalSecret == "" {
		c.PortalSecret = c.JWTSecret
	}
	return nil
}

// BodyLimit returns the request body limit in bytes.
func (c *Config) BodyLimit() int {
	if c.BodyLimitBytes > 0 {
		return c.BodyLimitBytes
	}
	return c.BodyLimitMB * 1024 * 1024
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
