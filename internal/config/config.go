package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	MaxUploadSize int64
	BaseURL       string
	Secure        bool

	Environment string
	LogLevel    string

	RedisURL    string
	DatabaseURL string

	// JobstoreBackend selects where job records live: "redis" or "postgres".
	JobstoreBackend string

	// StorageBackend selects where files live: "local" or "minio".
	StorageBackend string
	StorageRoot    string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string

	WorkerConcurrency int
	JobTimeout        time.Duration
	TempDir           string

	RetentionAge      time.Duration
	RetentionInterval time.Duration

	JWTSecret      string
	DailyFreeLimit int
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 100*1024*1024)

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.JobstoreBackend = getEnvString("JOBSTORE_BACKEND", "redis")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.JobstoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when JOBSTORE_BACKEND=postgres")
	}

	cfg.StorageBackend = getEnvString("STORAGE_BACKEND", "local")
	cfg.StorageRoot = getEnvString("STORAGE_ROOT", "./data")

	if cfg.StorageBackend == "minio" {
		cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
		if cfg.MinIOEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
		cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
		if cfg.MinIOAccessKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY is required when STORAGE_BACKEND=minio")
		}
		cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
		if cfg.MinIOSecretKey == "" {
			return nil, fmt.Errorf("MINIO_SECRET_KEY is required when STORAGE_BACKEND=minio")
		}
	}
	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "fileworks")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")

	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", 4)
	cfg.JobTimeout, err = getEnvDuration("JOB_TIMEOUT", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
	}
	cfg.TempDir = getEnvString("TEMP_DIR", os.TempDir())

	cfg.RetentionAge, err = getEnvDuration("RETENTION_AGE", "24h")
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_AGE: %w", err)
	}
	cfg.RetentionInterval, err = getEnvDuration("RETENTION_INTERVAL", "1h")
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_INTERVAL: %w", err)
	}

	cfg.JWTSecret = getEnvString("JWT_SECRET", "change-me-in-production")
	cfg.DailyFreeLimit = getEnvInt("DAILY_FREE_LIMIT", 2)

	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.Secure = getEnvBool("SECURE_COOKIES", false)

	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MaxUploadSize < 1 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadSize)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("invalid worker concurrency: %d", c.WorkerConcurrency)
	}

	switch c.JobstoreBackend {
	case "redis", "postgres":
	default:
		return fmt.Errorf("invalid jobstore backend: %q", c.JobstoreBackend)
	}

	switch c.StorageBackend {
	case "local", "minio":
	default:
		return fmt.Errorf("invalid storage backend: %q", c.StorageBackend)
	}

	if c.RetentionAge < time.Minute {
		return fmt.Errorf("retention age too short: %s", c.RetentionAge)
	}

	if c.DailyFreeLimit < 0 {
		return fmt.Errorf("invalid daily free limit: %d", c.DailyFreeLimit)
	}

	return nil
}
