package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	var errs []error

	for field, port := range map[string]string{"SERVER_PORT": cfg.ServerPort, "CATALOG_PORT": cfg.CatalogPort} {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid port %q", port)})
		}
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, ValidationError{Field: "DB_DRIVER", Message: "must be postgres or sqlite"})
	}

	if u, err := url.Parse(cfg.RecipeAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: "RECIPE_API_URL", Message: "must be an absolute URL"})
	}

	if cfg.HTTPTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "HTTP_TIMEOUT", Message: "must be positive"})
	}
	if cfg.HTTPMaxRetries < 0 {
		errs = append(errs, ValidationError{Field: "HTTP_MAX_RETRIES", Message: "must not be negative"})
	}
	if cfg.RateLimitRequests < 1 || cfg.RateLimitWindow <= 0 {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_REQUESTS", Message: "rate limit must allow at least one request per window"})
	}

	// Sensitive values must be present outside development and test
	if cfg.Environment == Production || cfg.Environment == CI {
		if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
			errs = append(errs, ValidationError{Field: "DB_PASSWORD", Message: "db_password secret is required"})
		}
		if cfg.JWTSecret == "" {
			errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "jwt_secret secret is required"})
		}
	}

	return errors.Join(errs...)
}
