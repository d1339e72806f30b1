package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ClipFlow server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Shotstack ShotstackConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ShotstackConfig configures the render-engine client. Environment selects
// the sandbox or production API host; BaseURL overrides the host entirely
// (used by tests).
type ShotstackConfig struct {
	APIKey         string
	Environment    string
	BaseURL        string
	MaxRetries     int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
	Debug          bool
}

var validShotstackEnvs = map[string]bool{
	"sandbox":    true,
	"production": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CLIPFLOW_PORT", 8080),
			Env:  envString("CLIPFLOW_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Shotstack: ShotstackConfig{
			APIKey:         os.Getenv("SHOTSTACK_API_KEY"),
			Environment:    envString("SHOTSTACK_ENV", "sandbox"),
			BaseURL:        os.Getenv("SHOTSTACK_BASE_URL"),
			MaxRetries:     envInt("SHOTSTACK_MAX_RETRIES", 3),
			RetryBaseDelay: envDuration("SHOTSTACK_RETRY_BASE_DELAY", 500*time.Millisecond),
			Timeout:        envDuration("SHOTSTACK_TIMEOUT", 30*time.Second),
			Debug:          envBool("SHOTSTACK_DEBUG", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Shotstack.APIKey == "" {
		return fmt.Errorf("SHOTSTACK_API_KEY is required")
	}
	if !validShotstackEnvs[c.Shotstack.Environment] {
		return fmt.Errorf("SHOTSTACK_ENV must be one of sandbox, production; got %q", c.Shotstack.Environment)
	}
	if c.Shotstack.BaseURL != "" &&
		!strings.HasPrefix(c.Shotstack.BaseURL, "http://") && !strings.HasPrefix(c.Shotstack.BaseURL, "https://") {
		return fmt.Errorf("SHOTSTACK_BASE_URL must start with http:// or https://, got %q", c.Shotstack.BaseURL)
	}
	if c.Shotstack.MaxRetries < 1 {
		return fmt.Errorf("SHOTSTACK_MAX_RETRIES must be at least 1, got %d", c.Shotstack.MaxRetries)
	}
	if c.Shotstack.RetryBaseDelay <= 0 {
		return fmt.Errorf("SHOTSTACK_RETRY_BASE_DELAY must be positive, got %s", c.Shotstack.RetryBaseDelay)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
