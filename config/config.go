package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Webhooks      WebhookConfig
	Worker        WorkerConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from ATLAS_DATABASE_URL) is set, it takes precedence
// over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RedisConfig holds the stream broker connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token issuance and verification configuration
type AuthConfig struct {
	// Secret signs and verifies bearer tokens. Required in production;
	// development falls back to a fixed dev-only value.
	Secret   string
	TokenTTL time.Duration
}

// WebhookConfig holds per-platform webhook verification secrets.
// An empty secret disables verification for that platform (dev bootstrap).
type WebhookConfig struct {
	GitHubSecret string
	GitLabSecret string
}

// WorkerConfig holds usage-worker stream settings
type WorkerConfig struct {
	Enabled      bool
	UsageStream  string
	ScanStream   string
	Group        string
	Consumer     string
	BatchSize    int64
	BlockTimeout time.Duration
	RetryBackoff time.Duration
}

// CORSConfig holds allowed origins for the dashboard UI
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds per-client request limiting settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

const devAuthSecret = "atlas-dev-secret-change-in-production"

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ATLAS_ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("ATLAS_API_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("ATLAS_API_PORT", 8000),
			ReadTimeout:     getEnvAsDuration("ATLAS_SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("ATLAS_SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("ATLAS_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Redis: RedisConfig{
			Addr:     getEnv("ATLAS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ATLAS_REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("ATLAS_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret:   getEnv("ATLAS_AUTH_SECRET", ""),
			TokenTTL: getEnvAsDuration("ATLAS_AUTH_TOKEN_TTL", time.Hour),
		},
		Webhooks: WebhookConfig{
			GitHubSecret: getEnv("ATLAS_GITHUB_WEBHOOK_SECRET", ""),
			GitLabSecret: getEnv("ATLAS_GITLAB_WEBHOOK_SECRET", ""),
		},
		Worker: WorkerConfig{
			Enabled:      getEnvAsBool("ATLAS_USAGE_WORKER_ENABLED", true),
			UsageStream:  getEnv("ATLAS_USAGE_STREAM", "atlas.ai.usage"),
			ScanStream:   getEnv("ATLAS_SCAN_STREAM", "atlas.scan.requests"),
			Group:        getEnv("ATLAS_USAGE_GROUP", "atlas-api-usage"),
			Consumer:     getEnv("ATLAS_USAGE_CONSUMER", "atlas-api-1"),
			BatchSize:    int64(getEnvAsInt("ATLAS_USAGE_BATCH_SIZE", 10)),
			BlockTimeout: getEnvAsDuration("ATLAS_USAGE_BLOCK_TIMEOUT", 5*time.Second),
			RetryBackoff: getEnvAsDuration("ATLAS_USAGE_RETRY_BACKOFF", 5*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(getEnv("ATLAS_CORS_ALLOWED_ORIGINS", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("ATLAS_RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("ATLAS_RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("ATLAS_RATE_LIMIT_BURST", 50),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("ATLAS_LOG_LEVEL", "info"),
			LogFormat:      getEnv("ATLAS_LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("ATLAS_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set ATLAS_DATABASE_URL or ATLAS_DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.Secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("ATLAS_AUTH_SECRET is required in production")
		}
		c.Auth.Secret = devAuthSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from ATLAS_DATABASE_URL) when set; otherwise builds
// from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses
// ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from ATLAS_DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("ATLAS_DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("ATLAS_DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     getEnvAsInt("ATLAS_DB_MAX_IDLE_CONNS", 4),
			ConnMaxLifetime:  getEnvAsDuration("ATLAS_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("ATLAS_DB_HOST", "localhost"),
		Port:            getEnvAsInt("ATLAS_DB_PORT", 5432),
		User:            getEnv("ATLAS_DB_USER", "postgres"),
		Password:        getEnv("ATLAS_DB_PASSWORD", ""),
		Database:        getEnv("ATLAS_DB_NAME", "atlas_db"),
		SSLMode:         getEnv("ATLAS_DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("ATLAS_DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    getEnvAsInt("ATLAS_DB_MAX_IDLE_CONNS", 4),
		ConnMaxLifetime: getEnvAsDuration("ATLAS_DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// splitOrigins parses a comma-separated origin list. Empty input falls back
// to the local dashboard origin.
func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Helper functions

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
