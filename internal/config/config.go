package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Processor ProcessorConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

type ProcessorConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig is optional: an empty URL keeps the ledger in memory.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig is optional: no brokers means no ledger events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads the given .env files (".env" when none are given) and then the
// process environment. Missing .env files are not an error and variables
// already set in the environment take precedence.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("PROCESSOR_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESSOR_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, errors.New("invalid PROCESSOR_TIMEOUT: must be positive")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("APP_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGIN", "http://localhost:5173")),
		},
		Processor: ProcessorConfig{
			URL:     strings.TrimRight(getEnv("PROCESSOR_URL", "http://localhost:8000"), "/"),
			Timeout: timeout,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "ledger_updated"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Processor.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PROCESSOR_URL %q", c.Processor.URL)
	}
	if c.Server.Port == "" {
		return errors.New("PORT must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
