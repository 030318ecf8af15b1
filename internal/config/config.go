package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host     string
	Port     string
	LogLevel string

	RedisURL string
	AMQPURL  string

	Workers       int
	QueueCapacity int
	RatePerSecond int

	JanitorInterval time.Duration
}

func LoadConfig() *Config {
	// A local .env is optional; real deployments inject the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8000"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		RedisURL:        getEnv("REDIS_URL", ""),
		AMQPURL:         getEnv("AMQP_URL", ""),
		Workers:         getEnvInt("PIPELINE_WORKERS", 4),
		QueueCapacity:   getEnvInt("QUEUE_CAPACITY", 256),
		RatePerSecond:   getEnvInt("QUEUE_RATE_PER_SECOND", 30),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}
