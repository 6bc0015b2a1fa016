// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverMemory   = "memory"
)

// Config представляет конфигурацию приложения
type Config struct {
	// HTTP
	HTTPPort string

	// Health
	HealthPort         string
	HealthCheckEnabled bool

	// Logging
	LogLevel string
	LogPath  string

	// Storage
	StorageConfig StorageConfig

	// Publisher
	PublisherConfig PublisherConfig

	// Sweep
	SweepConfig SweepConfig

	// Auth
	AuthMode  string
	JWTSecret string

	// Shutdown
	ShutdownTimeout time.Duration
}

// StorageConfig представляет конфигурацию хранилища
type StorageConfig struct {
	Driver         string
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string
	ConnectRetries int
	ConnectDelay   time.Duration
}

// PublisherConfig представляет конфигурацию публикации событий
type PublisherConfig struct {
	URL            string
	MaxRetries     int
	RetryDelay     time.Duration
	Heartbeat      time.Duration
	PublishTimeout time.Duration
	Exchange       string
	RoutingKey     string
}

// SweepConfig представляет конфигурацию сверки дедлайнов
type SweepConfig struct {
	Enabled            bool
	Schedule           string
	PassTimeout        time.Duration
	PublishConcurrency int
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует, отсутствие файла не ошибка
	_ = godotenv.Load()

	config := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		HealthPort:         getEnv("HEALTH_PORT", "8081"),
		HealthCheckEnabled: getEnvBool("HEALTH_CHECK_ENABLED", true),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPath:            getEnv("LOG_PATH", "logs/app.log"),
		StorageConfig: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", StorageDriverPostgres),
			DatabaseURL:    getEnv("DB_DSN", ""),
			MongoURI:       getEnv("MONGO_URI", ""),
			MongoDatabase:  getEnv("MONGO_DB_NAME", "assignments"),
			ConnectRetries: getEnvInt("STORAGE_CONNECT_RETRIES", 10),
			ConnectDelay:   getEnvDuration("STORAGE_CONNECT_DELAY", 5*time.Second),
		},
		PublisherConfig: PublisherConfig{
			URL:            getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			MaxRetries:     getEnvInt("PUBLISHER_MAX_RETRIES", 10),
			RetryDelay:     getEnvDuration("PUBLISHER_RETRY_DELAY", 5*time.Second),
			Heartbeat:      getEnvDuration("PUBLISHER_HEARTBEAT", 30*time.Second),
			PublishTimeout: getEnvDuration("PUBLISHER_PUBLISH_TIMEOUT", 5*time.Second),
			Exchange:       getEnv("PUBLISHER_EXCHANGE", "elearning.report"),
			RoutingKey:     getEnv("PUBLISHER_ROUTING_KEY", "assignment.report"),
		},
		SweepConfig: SweepConfig{
			Enabled:            getEnvBool("SWEEP_ENABLED", true),
			Schedule:           getEnv("SWEEP_SCHEDULE", "@every 30s"),
			PassTimeout:        getEnvDuration("SWEEP_PASS_TIMEOUT", time.Minute),
			PublishConcurrency: getEnvInt("SWEEP_PUBLISH_CONCURRENCY", 16),
		},
		AuthMode:        getEnv("AUTH_MODE", "jwt"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Валидация обязательных полей
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if err := validatePort("HTTP_PORT", c.HTTPPort); err != nil {
		return err
	}

	if c.HealthCheckEnabled {
		if err := validatePort("HEALTH_PORT", c.HealthPort); err != nil {
			return err
		}
	}

	switch c.StorageConfig.Driver {
	case StorageDriverPostgres:
		if c.StorageConfig.DatabaseURL == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case StorageDriverMongo:
		if c.StorageConfig.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER: %s", c.StorageConfig.Driver)
	}

	if c.StorageConfig.ConnectRetries < 1 {
		return fmt.Errorf("STORAGE_CONNECT_RETRIES must be positive")
	}

	if c.PublisherConfig.URL == "" {
		return fmt.Errorf("NATS_URL is required")
	}

	if c.PublisherConfig.MaxRetries < 1 {
		return fmt.Errorf("PUBLISHER_MAX_RETRIES must be positive")
	}

	if c.PublisherConfig.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISHER_PUBLISH_TIMEOUT must be positive")
	}

	if c.PublisherConfig.Exchange == "" || c.PublisherConfig.RoutingKey == "" {
		return fmt.Errorf("PUBLISHER_EXCHANGE and PUBLISHER_ROUTING_KEY are required")
	}

	if c.SweepConfig.Enabled {
		if _, err := cron.ParseStandard(c.SweepConfig.Schedule); err != nil {
			return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", c.SweepConfig.Schedule, err)
		}
		if c.SweepConfig.PublishConcurrency < 1 {
			return fmt.Errorf("SWEEP_PUBLISH_CONCURRENCY must be positive")
		}
		if c.SweepConfig.PassTimeout <= 0 {
			return fmt.Errorf("SWEEP_PASS_TIMEOUT must be positive")
		}
	}

	switch c.AuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for AUTH_MODE=jwt")
		}
	case "gateway":
	default:
		return fmt.Errorf("unknown AUTH_MODE: %s", c.AuthMode)
	}

	return nil
}

// validatePort проверяет номер порта
func validatePort(key, value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%s must be a valid port, got %q", key, value)
	}
	return nil
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
