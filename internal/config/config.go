package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Ledger store
	LedgerBackend string
	SQLiteDBPath  string
	PostgresDSN   string
	SeedDir       string

	// Cache
	CacheBackend          string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	CacheMaxEntries       int
	CacheOpTimeout        time.Duration
	CacheScanTimeout      time.Duration
	CacheDeleteBatch      int
	CacheCompression      bool
	CacheCompressMinBytes int
	CacheSweepInterval    time.Duration

	// Budget source
	BudgetSource        string
	GoogleSpreadsheetID string
	GoogleBudgetRange   string
	BudgetCacheTTL      time.Duration

	// AMQP (optional for the API, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		SeedDir:       getEnv("SEED_DIR", ""),

		CacheBackend:          getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		CacheMaxEntries:       getEnvInt("CACHE_MAX_ENTRIES", 10000),
		CacheOpTimeout:        getEnvDuration("CACHE_OP_TIMEOUT", 150*time.Millisecond),
		CacheScanTimeout:      getEnvDuration("CACHE_SCAN_TIMEOUT", 2*time.Second),
		CacheDeleteBatch:      getEnvInt("CACHE_DELETE_BATCH", 500),
		CacheCompression:      getEnvBool("CACHE_COMPRESSION", true),
		CacheCompressMinBytes: getEnvInt("CACHE_COMPRESS_MIN_BYTES", 1024),
		CacheSweepInterval:    getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute),

		BudgetSource:        getEnv("BUDGET_SOURCE", "static"),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleBudgetRange:   getEnv("GOOGLE_BUDGET_RANGE", "Budget!A:C"),
		BudgetCacheTTL:      getEnvDuration("BUDGET_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cache_warm"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "postgres"}
	if !slices.Contains(validBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.LedgerBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.LedgerBackend == "postgres" && c.PostgresDSN == "" {
		errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
	}

	validCaches := []string{"memory", "redis"}
	if !slices.Contains(validCaches, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validCaches))
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR is required when using redis cache")
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		errors = append(errors, fmt.Sprintf("invalid redis db %d: must be between 0 and 15", c.RedisDB))
	}
	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at least 1", c.CacheMaxEntries))
	}
	if c.CacheOpTimeout < time.Millisecond || c.CacheOpTimeout > 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache op timeout %v: must be between 1ms and 10s", c.CacheOpTimeout))
	}
	if c.CacheDeleteBatch < 1 || c.CacheDeleteBatch > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache delete batch %d: must be between 1 and 10000", c.CacheDeleteBatch))
	}
	if c.CacheCompressMinBytes < 0 {
		errors = append(errors, fmt.Sprintf("invalid compression threshold %d: must not be negative", c.CacheCompressMinBytes))
	}

	validBudgets := []string{"static", "sheets"}
	if !slices.Contains(validBudgets, c.BudgetSource) {
		errors = append(errors, fmt.Sprintf("invalid budget source '%s': must be one of %v", c.BudgetSource, validBudgets))
	}
	if c.BudgetSource == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets budget source")
		}
		if c.GoogleBudgetRange == "" {
			errors = append(errors, "Google budget range is required when using sheets budget source")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// RequireAMQP is an additional check for processes that cannot run
// without a broker.
func (c *Config) RequireAMQP() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
