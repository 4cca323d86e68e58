package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	// StorageDriver selects the repository backend: "postgres" or "memory"
	StorageDriver string
	CORSOrigins   string
	// Auth
	JWKSURL     string
	AuthDevUser string // dev only: accept requests without a token as this user
	// Object storage
	ObjectStore       string // "s3" or "memory"
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	// Published sites
	SiteBaseURL    string // public base URL of the bucket
	SiteHostSuffix string // primary hosts are allocated as {project-slug}.{suffix}
	// Edge pointer cache
	RedisURL        string
	PointerCacheTTL time.Duration
	// Publish workers
	PublishWorkers    int
	RenderConcurrency int
	BuildTimeout      time.Duration
	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TablePrefix:       tablePrefix,
		StorageDriver:     getEnv("STORAGE_DRIVER", "postgres"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:           getEnv("JWKS_URL", ""),
		AuthDevUser:       getEnv("AUTH_DEV_USER", ""),
		ObjectStore:       getEnv("OBJECT_STORE", "s3"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		SiteBaseURL:       getEnv("SITE_BASE_URL", "http://localhost:8080/static"),
		SiteHostSuffix:    getEnv("SITE_HOST_SUFFIX", "docs.localhost"),
		RedisURL:          getEnv("REDIS_URL", ""),
		PointerCacheTTL:   getDuration("POINTER_CACHE_TTL", 5*time.Second),
		PublishWorkers:    getInt("PUBLISH_WORKERS", 4),
		RenderConcurrency: getInt("RENDER_CONCURRENCY", 8),
		BuildTimeout:      getDuration("BUILD_TIMEOUT", 15*time.Minute),
		LogDir:            getEnv("LOG_DIR", ""),
		LogMaxFiles:       getInt("LOG_MAX_FILES", 10),
	}
}

// BuildDeadline is how long a worker lets one build run. It is a tenth
// shorter than BuildTimeout, the reaper cutoff, so a slow build aborts
// before the reaper can fail it.
func (c *Config) BuildDeadline() time.Duration {
	return c.BuildTimeout - c.BuildTimeout/10
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
