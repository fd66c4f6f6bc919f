// Package config loads runtime configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/umeboshi2/kotti-jsonapi/domain/security"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress  string `yaml:"server_address"`
	Environment    string `yaml:"environment"`
	ApplicationURL string `yaml:"application_url"`
	SiteTitle      string `yaml:"site_title"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Storage
	StorageBackend string `yaml:"storage_backend"`
	AWSRegion      string `yaml:"aws_region"`
	DynamoDBTable  string `yaml:"table_name"`
	SiteID         string `yaml:"site_id"`
	EventBusName   string `yaml:"event_bus_name"`

	// Feature flags
	EnableEvents  bool `yaml:"enable_events"`
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	SeedContent   bool `yaml:"seed_content"`

	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	SchemaDir      string        `yaml:"schema_dir"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Principals seeds the user store when it is empty.
	Principals []security.Principal `yaml:"principals"`

	// ConfigFile is the YAML overlay this config was read from, if any.
	ConfigFile string `yaml:"-"`
}

// LoadConfig reads defaults, then the CONFIG_FILE overlay, then environment
// variables, which win over the file.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	cfg.ConfigFile = getEnv("CONFIG_FILE", "")
	if cfg.ConfigFile != "" {
		if err := loadFile(cfg.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    "development",
		ApplicationURL: "http://localhost:8080",
		SiteTitle:      "Kotti",
		LogLevel:       "info",
		JWTIssuer:      "kotti-jsonapi",
		StorageBackend: StorageMemory,
		AWSRegion:      "us-west-2",
		DynamoDBTable:  "kotti-content",
		SiteID:         "default",
		EventBusName:   "kotti-events",
		SchemaDir:      "",
		SessionTTL:     24 * time.Hour,
		AllowedOrigins: []string{"*"},
		SeedContent:    true,

		RateLimitPerMinute: 600,
	}
}

func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.ApplicationURL = strings.TrimSuffix(getEnv("APPLICATION_URL", cfg.ApplicationURL), "/")
	cfg.SiteTitle = getEnv("SITE_TITLE", cfg.SiteTitle)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)

	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", cfg.DynamoDBTable)
	cfg.SiteID = getEnv("SITE_ID", cfg.SiteID)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)

	cfg.EnableEvents = getEnvBool("ENABLE_EVENTS", cfg.EnableEvents)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.SeedContent = getEnvBool("SEED_CONTENT", cfg.SeedContent)

	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.SchemaDir = getEnv("SCHEMA_DIR", cfg.SchemaDir)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30m") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
