package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the envelope archive bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig is shared by the finalization queue and the optional redis two-factor store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig holds the RabbitMQ connection used for outbound notifications.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string
	Output     string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SigningConfig holds signing flow settings.
type SigningConfig struct {
	TwoFactorTTL time.Duration
	// TwoFactorStore selects where two-factor tokens live: postgres or redis.
	TwoFactorStore string
}

// WorkerConfig holds finalization worker settings.
type WorkerConfig struct {
	Concurrency int
	// ReconcileInterval is how often completed envelopes are checked for a
	// missing archive. Zero disables the sweep.
	ReconcileInterval time.Duration
	// ReconcileLookback bounds how far back the sweep looks.
	ReconcileLookback time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Log       LogConfig
	Signing   SigningConfig
	Worker    WorkerConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:   getEnv("APP_HOST", "localhost:8080"),
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "signapi.notifications"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Path:       getEnv("LOG_PATH", "logs/signapi.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
		Signing: SigningConfig{
			TwoFactorTTL:   getEnvDuration("SIGNING_TWO_FACTOR_TTL", 10*time.Minute),
			TwoFactorStore: getEnv("SIGNING_TWO_FACTOR_STORE", "postgres"),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvInt("WORKER_CONCURRENCY", 10),
			ReconcileInterval: getEnvDuration("WORKER_RECONCILE_INTERVAL", 5*time.Minute),
			ReconcileLookback: getEnvDuration("WORKER_RECONCILE_LOOKBACK", 24*time.Hour),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
