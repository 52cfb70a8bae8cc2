// Package config loads RDIE's process-level configuration from the
// environment (and an optional .env file), mirroring the teacher's
// envvar-with-defaults loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/api, cmd/worker, and cmd/demo need to start.
type Config struct {
	Server   ServerConfig
	MySQL    MySQLConfig
	Temporal TemporalConfig
	Browser  BrowserConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// MySQLConfig holds the checkout-run persistence layer's DSN.
type MySQLConfig struct {
	DSN string
}

// TemporalConfig holds the Temporal client's connection settings.
type TemporalConfig struct {
	HostPort  string
	TaskQueue string
}

// BrowserConfig holds go-rod launcher settings.
type BrowserConfig struct {
	ChromeBin     string
	Headless      bool
	ScreenshotDir string
	TimeoutSecs   int
	RetryAttempts int
}

// LoggingConfig holds zap logger construction settings.
type LoggingConfig struct {
	Level string // debug, info, warn, error
	JSON  bool
}

// Load reads a .env file if present, then builds a Config from the
// environment, falling back to RDIE's defaults for anything unset.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("RDIE_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("RDIE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("RDIE_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("RDIE_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:     []string{"*"},
		},
		MySQL: MySQLConfig{
			DSN: getEnv("RDIE_MYSQL_DSN", "rdie:rdie@tcp(localhost:3306)/rdie?parseTime=true"),
		},
		Temporal: TemporalConfig{
			HostPort:  getEnv("RDIE_TEMPORAL_HOST", "localhost:7233"),
			TaskQueue: getEnv("RDIE_TASK_QUEUE", "rdie-checkout"),
		},
		Browser: BrowserConfig{
			ChromeBin:     os.Getenv("CHROME_BIN"),
			Headless:      getEnvAsBool("RDIE_HEADLESS", true),
			ScreenshotDir: getEnv("RDIE_SCREENSHOT_DIR", "/tmp/rdie-screenshots"),
			TimeoutSecs:   getEnvAsInt("RDIE_INTENT_TIMEOUT_SECONDS", 120),
			RetryAttempts: getEnvAsInt("RDIE_RETRY_ATTEMPTS", 3),
		},
		Logging: LoggingConfig{
			Level: getEnv("RDIE_LOG_LEVEL", "info"),
			JSON:  getEnvAsBool("RDIE_LOG_JSON", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Browser.TimeoutSecs <= 0 {
		return fmt.Errorf("RDIE_INTENT_TIMEOUT_SECONDS must be positive")
	}
	if c.Browser.RetryAttempts <= 0 {
		return fmt.Errorf("RDIE_RETRY_ATTEMPTS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
