package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Logging    LoggingConfig
	Scan       ScanConfig
	Generation GenerationConfig
	Metrics    MetricsConfig
	Server     ServerConfig
}

// DatabaseConfig contains scan/selection store configuration
type DatabaseConfig struct {
	// Driver is one of memory, sqlite or postgres
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// ScanConfig contains orchestrator tuning
type ScanConfig struct {
	EnrichConcurrency int
	RateLimit         float64
	WaitTimeout       time.Duration
}

// GenerationConfig contains code generation defaults
type GenerationConfig struct {
	TemplateDir        string
	OutputDir          string
	PreviewChars       int
	FileSplit          string
	NamingConvention   string
	ImportScriptFormat string
}

// MetricsConfig contains the Prometheus endpoint configuration
type MetricsConfig struct {
	Addr string
}

// ServerConfig contains the HTTP API configuration
type ServerConfig struct {
	Addr              string
	AllowedOrigins    []string
	RequestsPerSecond float64
	Burst             int
	ShutdownTimeout   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "iamgen"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./iamgen.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Scan: ScanConfig{
			EnrichConcurrency: getEnvAsInt("SCAN_ENRICH_CONCURRENCY", 10),
			RateLimit:         getEnvAsFloat("SCAN_RATE_LIMIT", 0),
			WaitTimeout:       getEnvAsDuration("SCAN_WAIT_TIMEOUT", 30*time.Minute),
		},
		Generation: GenerationConfig{
			TemplateDir:        getEnv("TEMPLATE_DIR", ""),
			OutputDir:          getEnv("OUTPUT_DIR", "./generated"),
			PreviewChars:       getEnvAsInt("PREVIEW_CHARS", 500),
			FileSplit:          getEnv("FILE_SPLIT", "single"),
			NamingConvention:   getEnv("NAMING_CONVENTION", "snake_case"),
			ImportScriptFormat: getEnv("IMPORT_SCRIPT_FORMAT", "bash"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":9090"),
		},
		Server: ServerConfig{
			Addr:              getEnv("SERVER_ADDR", "127.0.0.1:8080"),
			AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS"),
			RequestsPerSecond: getEnvAsFloat("SERVER_RATE_LIMIT", 20),
			Burst:             getEnvAsInt("SERVER_RATE_BURST", 40),
			ShutdownTimeout:   getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Scan.EnrichConcurrency < 1 || c.Scan.EnrichConcurrency > 10 {
		return fmt.Errorf("SCAN_ENRICH_CONCURRENCY must be between 1 and 10, got %d", c.Scan.EnrichConcurrency)
	}

	if c.Scan.RateLimit < 0 {
		return fmt.Errorf("SCAN_RATE_LIMIT must not be negative")
	}

	if c.Server.RequestsPerSecond <= 0 {
		return fmt.Errorf("SERVER_RATE_LIMIT must be positive")
	}

	if c.Generation.PreviewChars < 0 {
		return fmt.Errorf("PREVIEW_CHARS must not be negative")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
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
