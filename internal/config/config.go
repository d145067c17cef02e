package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the realtime service needs at boot.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	JWTSecret string `yaml:"jwt_secret"`

	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	AllowedOrigins []string `yaml:"cors_origins"`

	LivenessInterval time.Duration `yaml:"liveness_interval"`
	MaxMessageLength int           `yaml:"max_message_length"`
	SendBuffer       int           `yaml:"send_buffer"`
	MaxFrameBytes    int64         `yaml:"max_frame_bytes"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	StoreTimeout     time.Duration `yaml:"store_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	PresenceTTL             time.Duration `yaml:"presence_ttl"`
	PresenceRefreshSchedule string        `yaml:"presence_refresh_schedule"`

	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

func defaults() *Config {
	return &Config{
		Port:                    "3001",
		LogLevel:                "info",
		DBDriver:                "postgres",
		SQLitePath:              "realtime.db",
		AllowedOrigins:          []string{"http://localhost:3000", "http://localhost:5173"},
		LivenessInterval:        30 * time.Second,
		MaxMessageLength:        1000,
		SendBuffer:              256,
		MaxFrameBytes:           64 * 1024,
		WriteTimeout:            10 * time.Second,
		StoreTimeout:            5 * time.Second,
		ShutdownTimeout:         30 * time.Second,
		PresenceTTL:             2 * time.Minute,
		PresenceRefreshSchedule: "@every 1m",
		RateLimitPerSecond:      10,
		RateLimitBurst:          20,
	}
}

// LoadConfig applies defaults, then the optional CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnvOrDefault("JWT_SECRET", c.JWTSecret)

	c.DBDriver = strings.ToLower(getEnvOrDefault("DB_DRIVER", c.DBDriver))
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	if c.DatabaseURL == "" && os.Getenv("POSTGRES_HOST") != "" {
		c.DatabaseURL = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("POSTGRES_HOST"),
			getEnvOrDefault("POSTGRES_USER", "postgres"),
			os.Getenv("POSTGRES_PASSWORD"),
			getEnvOrDefault("POSTGRES_DB", "mindspark"),
			getEnvOrDefault("POSTGRES_PORT", "5432"),
		)
	}
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)

	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", c.RedisPassword)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	c.LivenessInterval = getEnvDuration("LIVENESS_INTERVAL", c.LivenessInterval)
	c.MaxMessageLength = getEnvInt("MAX_MESSAGE_LENGTH", c.MaxMessageLength)
	c.SendBuffer = getEnvInt("SEND_BUFFER", c.SendBuffer)
	c.MaxFrameBytes = int64(getEnvInt("MAX_FRAME_BYTES", int(c.MaxFrameBytes)))
	c.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.StoreTimeout = getEnvDuration("STORE_TIMEOUT", c.StoreTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.PresenceTTL = getEnvDuration("PRESENCE_TTL", c.PresenceTTL)
	c.PresenceRefreshSchedule = getEnvOrDefault("PRESENCE_REFRESH_SCHEDULE", c.PresenceRefreshSchedule)

	c.RateLimitPerSecond = getEnvFloat("RATE_LIMIT_PER_SECOND", c.RateLimitPerSecond)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
}

func validateConfig(config *Config) error {
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch config.DBDriver {
	case "postgres":
		if config.DatabaseURL == "" {
			return errors.New("DATABASE_URL or POSTGRES_HOST is required for the postgres driver")
		}
	case "sqlite":
	default:
		return errors.New("unsupported DB_DRIVER: " + config.DBDriver + ". Currently supported: postgres, sqlite")
	}
	if config.LivenessInterval <= 0 {
		return errors.New("LIVENESS_INTERVAL must be positive")
	}
	if config.MaxMessageLength <= 0 {
		return errors.New("MAX_MESSAGE_LENGTH must be positive")
	}
	if config.SendBuffer <= 0 {
		return errors.New("SEND_BUFFER must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
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
