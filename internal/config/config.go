package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Queue     QueueConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `envconfig:"APP_NAME" default:"portfolio-contact"`
	Env                   string `envconfig:"APP_ENV" default:"development"`
	Host                  string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port                  string `envconfig:"APP_PORT" default:"8080"`
	Version               string `envconfig:"APP_VERSION" default:"dev"`
	RequestTimeoutSeconds int    `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"30"`
	ProxyHeader           string `envconfig:"HTTP_PROXY_HEADER"`
	CORSOrigins           string `envconfig:"HTTP_CORS_ORIGINS" default:"*"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `envconfig:"POSTGRES_DSN"`
	MaxConns       int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	MinConns       int32  `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	RunMigrations  bool   `envconfig:"POSTGRES_RUN_MIGRATIONS" default:"true"`
	ConnMaxIdleSec int32  `envconfig:"POSTGRES_CONN_MAX_IDLE_SECONDS" default:"30"`
	ConnMaxLifeSec int32  `envconfig:"POSTGRES_CONN_MAX_LIFE_SECONDS" default:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// AuthConfig defines admin authentication parameters.
type AuthConfig struct {
	JWTSecret             string `envconfig:"AUTH_JWT_SECRET" default:"dev-secret"`
	AccessTokenTTLMinutes int    `envconfig:"AUTH_ACCESS_TOKEN_TTL_MINUTES" default:"60"`
	AdminEmail            string `envconfig:"AUTH_ADMIN_EMAIL"`
	AdminPasswordHash     string `envconfig:"AUTH_ADMIN_PASSWORD_HASH"`
	BcryptCost            int    `envconfig:"AUTH_BCRYPT_COST" default:"12"`
}

// MailConfig holds outbound mail settings used by the notification pipeline.
type MailConfig struct {
	SMTPAddr      string        `envconfig:"MAIL_SMTP_ADDR" default:"127.0.0.1:1025"`
	Username      string        `envconfig:"MAIL_SMTP_USERNAME"`
	Password      string        `envconfig:"MAIL_SMTP_PASSWORD"`
	StartTLS      bool          `envconfig:"MAIL_SMTP_STARTTLS" default:"false"`
	SMTPTimeout   time.Duration `envconfig:"MAIL_SMTP_TIMEOUT" default:"30s"`
	FromAddress   string        `envconfig:"MAIL_FROM_ADDRESS" default:"noreply@example.com"`
	FromName      string        `envconfig:"MAIL_FROM_NAME" default:"Portfolio"`
	AdminAddress  string        `envconfig:"MAIL_ADMIN_ADDRESS" default:"alex@example.com"`
	AdminPanelURL string        `envconfig:"MAIL_ADMIN_PANEL_URL"`
	CheckDNS      bool          `envconfig:"MAIL_CHECK_DNS" default:"false"`
	Timezone      string        `envconfig:"MAIL_TIMEZONE" default:"UTC"`
}

// RateLimitConfig bounds contact form attempts per client.
type RateLimitConfig struct {
	Namespace     string `envconfig:"RATE_LIMIT_NAMESPACE" default:"contact-form"`
	MaxAttempts   int    `envconfig:"RATE_LIMIT_MAX_ATTEMPTS" default:"3"`
	WindowSeconds int    `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"300"`
}

// QueueConfig drives the asynchronous notification workers.
type QueueConfig struct {
	Connection   string        `envconfig:"QUEUE_CONNECTION" default:"mail"`
	Name         string        `envconfig:"QUEUE_NAME" default:"default"`
	Workers      int           `envconfig:"QUEUE_WORKERS" default:"2"`
	MaxAttempts  int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	Deadline     time.Duration `envconfig:"QUEUE_DEADLINE" default:"10m"`
	RetryBackoff time.Duration `envconfig:"QUEUE_RETRY_BACKOFF" default:"30s"`
	PollTimeout  time.Duration `envconfig:"QUEUE_POLL_TIMEOUT" default:"1s"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RATE_LIMIT_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return errors.New("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.Queue.MaxAttempts <= 0 {
		return errors.New("QUEUE_MAX_ATTEMPTS must be positive")
	}
	if c.Queue.Deadline <= 0 {
		return errors.New("QUEUE_DEADLINE must be positive")
	}
	if strings.TrimSpace(c.Mail.AdminAddress) == "" {
		return errors.New("MAIL_ADMIN_ADDRESS is required")
	}
	if _, err := time.LoadLocation(c.Mail.Timezone); err != nil {
		return fmt.Errorf("invalid MAIL_TIMEZONE: %w", err)
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Window returns the fixed rate-limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Location resolves the timezone used for submission timestamps and stats buckets.
func (m MailConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
