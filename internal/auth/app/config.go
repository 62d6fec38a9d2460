package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail transports.
const (
	MailTransportLog  = "log"
	MailTransportSMTP = "smtp"
	MailTransportAMQP = "amqp"
)

// Rate limit backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	Issuer         string        // iss claim of session tokens (default: usermgmt-auth)
	Audience       string        // aud claim of session tokens (default: usermgmt)
	SigningKeyFile string        // HS256 key file, created on first start (default: ./signing.key)
	SigningKey     string        // Optional: HS256 key, overrides SigningKeyFile
	SessionTTL     time.Duration // Session token lifetime (default: 1h)

	VerificationTTL     time.Duration // Verification token lifetime (default: 24h)
	RequestTimeout      time.Duration // Per-request deadline (default: 30s)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	SeedFile      string // Optional: YAML seed catalog, built-in default when empty
	AdminEmail    string // Optional: overrides the catalog admin email
	AdminName     string // Optional: overrides the catalog admin name
	AdminPassword string // Optional: overrides the catalog admin password

	MailTransport string        // log, smtp or amqp (default: log)
	MailFrom      string        // From address (default: no-reply@localhost)
	MailTimeout   time.Duration // Bound on one send (default: 10s)
	SMTPHost      string
	SMTPPort      int // (default: 587)
	SMTPUsername  string
	SMTPPassword  string
	AMQPURL       string // Required for the amqp transport
	MailQueue     string // (default: auth.verification_email)

	RateLimitBackend string // memory or redis (default: memory)
	RedisAddr        string // (default: localhost:6379)
	RedisPassword    string
	RedisDB          int
}

// LoadConfig reads the environment, after loading AUTH_ENV_FILE (default
// .env) when it exists. Variables already set win over the file.
func LoadConfig() (Config, error) {
	envFile := getEnvOrDefault("AUTH_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		Env:       getEnvOrDefault("AUTH_ENV", "dev"),
		LogLevel:  getEnvOrDefault("AUTH_LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("AUTH_LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		DatabaseFile: getEnvOrDefault("AUTH_DB_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Issuer:         getEnvOrDefault("AUTH_ISSUER", "usermgmt-auth"),
		Audience:       getEnvOrDefault("AUTH_AUDIENCE", "usermgmt"),
		SigningKeyFile: getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing.key"),
		SigningKey:     os.Getenv("AUTH_SIGNING_KEY"),
		SessionTTL:     getEnvDurationOrDefault("AUTH_SESSION_TTL", time.Hour),

		VerificationTTL:     getEnvDurationOrDefault("AUTH_VERIFICATION_TTL", 24*time.Hour),
		RequestTimeout:      getEnvDurationOrDefault("AUTH_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: getEnvDurationOrDefault("AUTH_SHUTDOWN_GRACE", 10*time.Second),

		SeedFile:      os.Getenv("AUTH_SEED_FILE"),
		AdminEmail:    os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminName:     os.Getenv("AUTH_ADMIN_NAME"),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		MailTransport: strings.ToLower(getEnvOrDefault("AUTH_MAIL_TRANSPORT", MailTransportLog)),
		MailFrom:      getEnvOrDefault("AUTH_MAIL_FROM", "no-reply@localhost"),
		MailTimeout:   getEnvDurationOrDefault("AUTH_MAIL_TIMEOUT", 10*time.Second),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		MailQueue:     getEnvOrDefault("AUTH_MAIL_QUEUE", "auth.verification_email"),

		RateLimitBackend: strings.ToLower(getEnvOrDefault("AUTH_RATE_LIMIT_BACKEND", RateLimitMemory)),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("REDIS_DB", 0),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.MailTransport {
	case MailTransportLog:
	case MailTransportSMTP:
		if c.SMTPHost == "" {
			return errors.New("config: SMTP_HOST is required for the smtp mail transport")
		}
	case MailTransportAMQP:
		if c.AMQPURL == "" {
			return errors.New("config: AMQP_URL is required for the amqp mail transport")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_MAIL_TRANSPORT %q", c.MailTransport)
	}

	switch c.RateLimitBackend {
	case RateLimitMemory, RateLimitRedis:
	default:
		return fmt.Errorf("config: unknown AUTH_RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}

	if c.SigningKey != "" && len(c.SigningKey) < 32 {
		return errors.New("config: AUTH_SIGNING_KEY must be at least 32 bytes")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
