package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort string
	ServerHost string
	PublicURL  string

	// Database configuration
	DBDriver    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string
	AutoMigrate bool

	// Redis configuration; cache and rate limiting are disabled when neither
	// RedisURL nor RedisHost is set.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string
	CacheTTL      time.Duration

	// JWT configuration
	JWTSecret string

	// Image storage
	StorageDriver string
	MediaRoot     string
	MediaURL      string
	S3BucketName  string
	AWSRegion     string
	S3Endpoint    string
	S3PublicURL   string

	CORSOrigins []string

	// API behaviour
	PageSize          int
	MaxPageSize       int
	RecipesLimit      int
	RecipeCreateLimit int
	RecipeUpdateLimit int

	LogMode     string
	ServiceName string

	// Tracing; spans go to stdout when enabled without an OTLP endpoint.
	OTelEnabled  bool
	OTelEndpoint string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageLocal = "local"
	StorageS3    = "s3"

	defaultJWTSecret = "dev-only-secret"
)

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{Environment: env}

	// Load configuration based on environment
	switch env {
	case CI:
		load(cfg, os.Getenv)
	case Development, Test:
		load(cfg, envThenSecret)
		applyDevDefaults(cfg)
	case Production:
		load(cfg, secretThenEnv)
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}
	applyDefaults(cfg)

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(cfg *Config, get func(string) string) {
	cfg.ServerPort = get("SERVER_PORT")
	cfg.ServerHost = get("SERVER_HOST")
	cfg.PublicURL = strings.TrimRight(get("PUBLIC_URL"), "/")

	cfg.DBDriver = strings.ToLower(get("DB_DRIVER"))
	cfg.DBHost = get("DB_HOST")
	cfg.DBPort = get("DB_PORT")
	cfg.DBUser = get("DB_USER")
	cfg.DBPassword = get("DB_PASSWORD")
	cfg.DBName = get("DB_NAME")
	cfg.DBSSLMode = get("DB_SSL_MODE")
	cfg.SQLitePath = get("SQLITE_PATH")
	cfg.AutoMigrate = parseBool(get("AUTO_MIGRATE"))

	cfg.RedisHost = get("REDIS_HOST")
	cfg.RedisPort = get("REDIS_PORT")
	cfg.RedisPassword = get("REDIS_PASSWORD")
	cfg.RedisURL = get("REDIS_URL")
	cfg.RedisDB = parseInt(get("REDIS_DB"), 0)
	cfg.CacheTTL = parseDuration(get("CACHE_TTL"), 10*time.Minute)

	cfg.JWTSecret = get("JWT_SECRET")

	cfg.StorageDriver = strings.ToLower(get("STORAGE_DRIVER"))
	cfg.MediaRoot = get("MEDIA_ROOT")
	cfg.MediaURL = get("MEDIA_URL")
	cfg.S3BucketName = get("S3_BUCKET_NAME")
	cfg.AWSRegion = get("AWS_REGION")
	cfg.S3Endpoint = get("S3_ENDPOINT")
	cfg.S3PublicURL = strings.TrimRight(get("S3_PUBLIC_URL"), "/")

	cfg.CORSOrigins = splitList(get("CORS_ORIGINS"))

	cfg.PageSize = parseInt(get("PAGE_SIZE"), 6)
	cfg.MaxPageSize = parseInt(get("MAX_PAGE_SIZE"), 100)
	cfg.RecipesLimit = parseInt(get("RECIPES_LIMIT"), 6)
	cfg.RecipeCreateLimit = parseInt(get("RECIPE_CREATE_LIMIT"), 20)
	cfg.RecipeUpdateLimit = parseInt(get("RECIPE_UPDATE_LIMIT"), 30)

	cfg.LogMode = get("LOG_MODE")
	cfg.ServiceName = get("SERVICE_NAME")

	cfg.OTelEnabled = parseBool(get("OTEL_ENABLED"))
	cfg.OTelEndpoint = get("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// applyDevDefaults lets `go run ./cmd/api` work on a laptop with no setup.
func applyDevDefaults(cfg *Config) {
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverSQLite
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "larder.db"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageLocal
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:8080"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	cfg.AutoMigrate = true
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverPostgres
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageS3
	}
	if cfg.MediaRoot == "" {
		cfg.MediaRoot = "media"
	}
	if cfg.MediaURL == "" {
		cfg.MediaURL = "/media/"
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}
	if cfg.LogMode == "" {
		if cfg.Environment == Production {
			cfg.LogMode = "production"
		} else {
			cfg.LogMode = "development"
		}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "larder-api"
	}
}

// RedisEnabled reports whether a Redis endpoint was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// PostgresDSN builds a libpq keyword/value connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func envThenSecret(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return readSecret(strings.ToLower(key))
}

func secretThenEnv(key string) string {
	if v := readSecret(strings.ToLower(key)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(key))
}

func secretsDir() string {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return dir
	}
	return "/run/secrets"
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	data, err := os.ReadFile(filepath.Join(secretsDir(), name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
