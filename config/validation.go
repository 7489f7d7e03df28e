package config

import (
	"fmt"
	"strings"
)

// requirement is a setting that must be present in a given environment.
type requirement struct {
	Name  string
	Value func(*Config) string
}

var (
	postgresRequirements = []requirement{
		{"DB_HOST", func(c *Config) string { return c.DBHost }},
		{"DB_PORT", func(c *Config) string { return c.DBPort }},
		{"DB_USER", func(c *Config) string { return c.DBUser }},
		{"DB_PASSWORD", func(c *Config) string { return c.DBPassword }},
		{"DB_NAME", func(c *Config) string { return c.DBName }},
	}
	s3Requirements = []requirement{
		{"S3_BUCKET_NAME", func(c *Config) string { return c.S3BucketName }},
		{"AWS_REGION", func(c *Config) string { return c.AWSRegion }},
	}
)

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	var errors []string

	switch cfg.DBDriver {
	case DriverPostgres:
		errors = append(errors, missing(cfg, postgresRequirements)...)
	case DriverSQLite:
		if cfg.Environment == Production {
			errors = append(errors, "DB_DRIVER sqlite is not allowed in production")
		}
		if cfg.SQLitePath == "" {
			errors = append(errors, "SQLITE_PATH is required for the sqlite driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}

	switch cfg.StorageDriver {
	case StorageS3:
		errors = append(errors, missing(cfg, s3Requirements)...)
	case StorageLocal:
	default:
		errors = append(errors, fmt.Sprintf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver))
	}

	if cfg.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if cfg.Environment == Production && cfg.JWTSecret == defaultJWTSecret {
		errors = append(errors, "JWT_SECRET must not use the development default in production")
	}
	if cfg.Environment == Production && cfg.PublicURL == "" {
		errors = append(errors, "PUBLIC_URL is required in production")
	}

	if cfg.PageSize < 1 || cfg.MaxPageSize < cfg.PageSize {
		errors = append(errors, "PAGE_SIZE must be positive and not exceed MAX_PAGE_SIZE")
	}
	if cfg.RecipesLimit < 0 {
		errors = append(errors, "RECIPES_LIMIT must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func missing(cfg *Config, reqs []requirement) []string {
	var out []string
	for _, r := range reqs {
		if r.Value(cfg) == "" {
			out = append(out, fmt.Sprintf("required setting %s is not set", r.Name))
		}
	}
	return out
}
