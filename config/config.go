package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds all configuration for the catalog, the explorer and the CLI
type Config struct {
	Environment Environment

	// Server configuration
	ServerHost  string `env:"SERVER_HOST,default=0.0.0.0"`
	ServerPort  string `env:"SERVER_PORT,default=8080"`
	CatalogPort string `env:"CATALOG_PORT,default=8081"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// Database configuration
	DBDriver   string `env:"DB_DRIVER,default=postgres"`
	DBHost     string `env:"DB_HOST,default=localhost"`
	DBPort     string `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,default=postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME,default=recipelens"`
	DBSSLMode  string `env:"DB_SSL_MODE,default=disable"`
	SQLitePath string `env:"SQLITE_PATH,default=recipelens.db"`

	// Redis configuration
	RedisHost     string        `env:"REDIS_HOST,default=localhost"`
	RedisPort     string        `env:"REDIS_PORT,default=6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	RedisURL      string        `env:"REDIS_URL"`
	CacheTTL      time.Duration `env:"CACHE_TTL,default=10m"`

	// JWT configuration
	JWTSecret string `env:"JWT_SECRET"`

	// Catalog client configuration used by the explorer and recipectl
	RecipeAPIURL   string        `env:"RECIPE_API_URL,default=http://localhost:8081/api"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT,default=30s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES,default=3"`

	// HTTP surface
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimitRequests  int           `env:"RATE_LIMIT_REQUESTS,default=100"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`

	// Image storage
	AWSRegion    string `env:"AWS_REGION"`
	S3BucketName string `env:"S3_BUCKET_NAME"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
}

// secretFields maps Docker secret names to the fields they fill when the
// matching environment variable is empty.
func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"db_password":    &c.DBPassword,
		"jwt_secret":     &c.JWTSecret,
		"redis_password": &c.RedisPassword,
		"redis_url":      &c.RedisURL,
	}
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{Environment: env}

	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	// CI uses environment variables only; everywhere else sensitive values
	// may come from Docker secrets
	if env != CI {
		for name, field := range cfg.secretFields() {
			if *field == "" {
				*field = readSecret(name)
			}
		}
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// PostgresURL returns the Postgres connection URL used by database/sql
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
