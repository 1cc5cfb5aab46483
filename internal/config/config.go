package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends understood by BACKEND.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	Timezone string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Storage
	Backend    string
	SQLitePath string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// Messaging
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "Local"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		Backend:    strings.ToLower(getEnv("BACKEND", BackendSupabase)),
		SQLitePath: getEnv("SQLITE_PATH", "./data/billstats.db"),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billstats"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "bill-events"),

		SpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetName:          getEnv("GOOGLE_SHEET_NAME", "Stats"),
		ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
	}
}

// Validate reports every storage and runtime problem at once. The
// binaries add ValidateAPI or ValidateWorker for their own settings.
func (c *Config) Validate() error {
	var errs []string

	if c.MaxConcurrency < 1 {
		errs = append(errs, "MAX_CONCURRENCY must be at least 1")
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE: %v", err))
	}

	switch c.Backend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, "SUPABASE_URL is required when BACKEND=supabase")
		}
		if c.SupabaseServiceKey == "" {
			errs = append(errs, "SUPABASE_SERVICE_ROLE_KEY is required when BACKEND=supabase")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required when BACKEND=sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("BACKEND must be %q or %q (got %q)", BackendSupabase, BackendSQLite, c.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateAPI checks the settings only the HTTP server needs.
func (c *Config) ValidateAPI() error {
	var errs []string
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.SupabaseJWTSecret == "" {
		errs = append(errs, "SUPABASE_JWT_SECRET is required to verify access tokens")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid api configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateWorker checks the settings the export worker needs on top of storage.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required")
	}
	if c.SpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required")
	}
	if c.ServiceAccountFile == "" {
		errs = append(errs, "GOOGLE_SERVICE_ACCOUNT_FILE is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid worker configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location resolves TIMEZONE, which decides what "today" means.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
