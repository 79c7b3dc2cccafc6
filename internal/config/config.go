package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig contains credential and access policy configuration
type AuthConfig struct {
	JWTSecret   string
	JWTExpiry   time.Duration
	Issuer      string
	PublicPaths []string
	PolicyFile  string
	Bootstrap   BootstrapConfig
}

// BootstrapConfig describes an administrator account seeded at startup
// into the in-memory account store.
type BootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

// StorageConfig selects the backend for accounts and audit records
type StorageConfig struct {
	Type        string // "memory", "badger", "postgres"
	DataDir     string
	SyncWrites  bool
	DatabaseURL string
	Migrate     bool
}

// AuditConfig contains audit recorder configuration
type AuditConfig struct {
	Enabled         bool
	BufferSize      int
	DropPolicy      string // "drop", "block"
	SubmitTimeout   time.Duration
	WriteTimeout    time.Duration
	AgentMaxLength  int
	EntityParam     string
	MaxPageSize     int
	DefaultPageSize int
}

// RateLimitConfig throttles credential issuance
type RateLimitConfig struct {
	Enabled         bool
	RequestsPerSec  float64
	Burst           int
	CleanupInterval time.Duration
}

// TracingConfig contains OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRatio  float64
	InsecureConn   bool
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnvString("CATALOG_HOST", ""),
			Port: getEnvInt("CATALOG_PORT", 8080),
		},
		Log: LogConfig{
			Level:  getEnvString("CATALOG_LOG_LEVEL", "info"),
			Format: getEnvString("CATALOG_LOG_FORMAT", "text"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnvString("CATALOG_JWT_SECRET", ""),
			JWTExpiry:   getEnvDuration("CATALOG_JWT_EXPIRY", 24*time.Hour),
			Issuer:      getEnvString("CATALOG_JWT_ISSUER", "catalog"),
			PublicPaths: getEnvStringSlice("CATALOG_PUBLIC_PATHS", []string{"/health", "/metrics", "/api/auth/login"}),
			PolicyFile:  getEnvString("CATALOG_POLICY_FILE", ""),
			Bootstrap: BootstrapConfig{
				Email:    getEnvString("CATALOG_BOOTSTRAP_ADMIN_EMAIL", ""),
				Password: getEnvString("CATALOG_BOOTSTRAP_ADMIN_PASSWORD", ""),
				Name:     getEnvString("CATALOG_BOOTSTRAP_ADMIN_NAME", "Administrator"),
			},
		},
		Storage: StorageConfig{
			Type:        getEnvString("CATALOG_STORAGE_TYPE", "memory"),
			DataDir:     getEnvString("CATALOG_DATA_DIR", "./data"),
			SyncWrites:  getEnvBool("CATALOG_SYNC_WRITES", true),
			DatabaseURL: getEnvString("CATALOG_DATABASE_URL", ""),
			Migrate:     getEnvBool("CATALOG_MIGRATE", true),
		},
		Audit: AuditConfig{
			Enabled:         getEnvBool("CATALOG_AUDIT_ENABLED", true),
			BufferSize:      getEnvInt("CATALOG_AUDIT_BUFFER_SIZE", 1024),
			DropPolicy:      getEnvString("CATALOG_AUDIT_DROP_POLICY", "drop"),
			SubmitTimeout:   getEnvDuration("CATALOG_AUDIT_SUBMIT_TIMEOUT", 50*time.Millisecond),
			WriteTimeout:    getEnvDuration("CATALOG_AUDIT_WRITE_TIMEOUT", 5*time.Second),
			AgentMaxLength:  getEnvInt("CATALOG_AUDIT_AGENT_MAX_LENGTH", 255),
			EntityParam:     getEnvString("CATALOG_AUDIT_ENTITY_PARAM", "id"),
			MaxPageSize:     getEnvInt("CATALOG_AUDIT_MAX_PAGE_SIZE", 100),
			DefaultPageSize: getEnvInt("CATALOG_AUDIT_DEFAULT_PAGE_SIZE", 20),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvBool("CATALOG_LOGIN_RATE_LIMIT_ENABLED", true),
			RequestsPerSec:  getEnvFloat("CATALOG_LOGIN_RATE_PER_SEC", 1.0),
			Burst:           getEnvInt("CATALOG_LOGIN_RATE_BURST", 5),
			CleanupInterval: getEnvDuration("CATALOG_LOGIN_RATE_CLEANUP", 5*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("CATALOG_TRACING_ENABLED", false),
			Endpoint:       getEnvString("CATALOG_TRACING_ENDPOINT", "otel-collector:4318"),
			ServiceName:    getEnvString("CATALOG_TRACING_SERVICE_NAME", "catalog"),
			ServiceVersion: getEnvString("CATALOG_TRACING_SERVICE_VERSION", "0.1.0"),
			Environment:    getEnvString("CATALOG_TRACING_ENVIRONMENT", "development"),
			SamplingRatio:  getEnvFloat("CATALOG_TRACING_SAMPLING_RATIO", 1.0),
			InsecureConn:   getEnvBool("CATALOG_TRACING_INSECURE", true),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret must be specified")
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("JWT expiry must be positive")
	}
	if c.Auth.Bootstrap.Email != "" && c.Auth.Bootstrap.Password == "" {
		return fmt.Errorf("bootstrap admin password must be specified together with its email")
	}

	switch c.Storage.Type {
	case "memory":
	case "badger":
		if c.Storage.DataDir == "" {
			return fmt.Errorf("data directory must be specified for badger storage")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL must be specified for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, badger or postgres)", c.Storage.Type)
	}

	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return fmt.Errorf("audit buffer size must be positive")
		}
		if c.Audit.DropPolicy != "drop" && c.Audit.DropPolicy != "block" {
			return fmt.Errorf("invalid audit drop policy: %s (must be drop or block)", c.Audit.DropPolicy)
		}
		if c.Audit.WriteTimeout <= 0 {
			return fmt.Errorf("audit write timeout must be positive")
		}
	}
	if c.Audit.AgentMaxLength <= 0 {
		return fmt.Errorf("audit agent max length must be positive")
	}
	if c.Audit.DefaultPageSize <= 0 || c.Audit.MaxPageSize < c.Audit.DefaultPageSize {
		return fmt.Errorf("invalid audit page sizes: default %d, max %d", c.Audit.DefaultPageSize, c.Audit.MaxPageSize)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSec <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	return nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	if c.Server.Host == "" {
		return fmt.Sprintf(":%d", c.Server.Port)
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvStringSlice reads a comma-separated list, ignoring empty items
func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result := []string{}
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
