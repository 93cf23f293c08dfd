package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the governance gateway.
type Config struct {
	HTTPPort   string
	JWTSecret  []byte
	CSRFSecret []byte
	RateLimit  RateLimitConfig
	Breaker    BreakerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Provider   ProviderConfig
	Telemetry  TelemetryConfig
	Archive    ArchiveConfig
}

// RateLimitConfig holds fixed-window rate limiter settings.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// BreakerConfig holds circuit breaker settings shared by all provider keys.
type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// DatabaseConfig holds database connection settings.
// An empty URL disables the telemetry store entirely.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings for the telemetry queue.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig holds upstream LLM provider settings.
type ProviderConfig struct {
	RequestTimeout time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string

	GoogleAPIKey  string
	GoogleBaseURL string
}

// TelemetryConfig holds settings for the async metric/audit pipeline.
type TelemetryConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// ArchiveConfig holds configuration for the S3-based request log archive.
type ArchiveConfig struct {
	Enabled       bool
	BufferSize    int
	FlushSize     int
	FlushInterval time.Duration
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	PodName       string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:   getEnvString("HTTP_PORT", "8080"),
		JWTSecret:  []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		CSRFSecret: []byte(getEnvString("CSRF_SECRET", "csrf-secret-key")),
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
			Window:      getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			OpenTimeout:      getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: ProviderConfig{
			RequestTimeout:   getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
			OpenAIAPIKey:     getEnvString("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnvString("OPENAI_BASE_URL", ""),
			AnthropicAPIKey:  getEnvString("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL: getEnvString("ANTHROPIC_BASE_URL", ""),
			AzureAPIKey:      getEnvString("AZURE_OPENAI_API_KEY", ""),
			AzureEndpoint:    getEnvString("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIVersion:  getEnvString("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			GoogleAPIKey:     getEnvString("GOOGLE_API_KEY", ""),
			GoogleBaseURL:    getEnvString("GOOGLE_BASE_URL", ""),
		},
		Telemetry: TelemetryConfig{
			BatchSize:    getEnvInt("TELEMETRY_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("TELEMETRY_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("TELEMETRY_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("TELEMETRY_RETRY_BACKOFF", 1*time.Second),
		},
		Archive: ArchiveConfig{
			Enabled:       getEnvString("ARCHIVE_ENABLED", "false") == "true",
			BufferSize:    getEnvInt("ARCHIVE_BUFFER_SIZE", 10000),
			FlushSize:     getEnvInt("ARCHIVE_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("ARCHIVE_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("ARCHIVE_S3_BUCKET", ""),
			S3Region:      getEnvString("ARCHIVE_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("ARCHIVE_S3_PREFIX", "logs/"),
			PodName:       getEnvString("POD_NAME", "gateway-0"),
		},
	}

	return cfg, nil
}
