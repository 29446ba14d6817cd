package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Biometric  BiometricConfig
	Automation AutomationConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Storage        string
	AllowedOrigins []string
	// SeedFile is a directory JSON loaded into memory storage at startup.
	SeedFile       string
}

// BiometricConfig points at the ISAPI access-control event endpoint of the device.
type BiometricConfig struct {
	BaseURL        string
	Username       string
	Password       string
	Timeout        time.Duration
	MaxResults     int
	TimezoneOffset string
}

type AutomationConfig struct {
	Enabled  bool
	Interval time.Duration
	Workers  int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Storage:        getEnv("STORAGE_DRIVER", StoragePostgres),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
		SeedFile:       getEnv("DIRECTORY_SEED_FILE", ""),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Biometric device configuration
	bioTimeout, err := time.ParseDuration(getEnv("BIOMETRIC_API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BIOMETRIC_API_TIMEOUT: %w", err)
	}
	bioMaxResults, err := strconv.Atoi(getEnv("BIOMETRIC_MAX_RESULTS", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid BIOMETRIC_MAX_RESULTS: %w", err)
	}

	config.Biometric = BiometricConfig{
		BaseURL:        getEnv("BIOMETRIC_API_URL", "http://192.168.100.202/ISAPI/AccessControl/AcsEvent"),
		Username:       getEnv("BIOMETRIC_API_USERNAME", ""),
		Password:       getEnv("BIOMETRIC_API_PASSWORD", ""),
		Timeout:        bioTimeout,
		MaxResults:     bioMaxResults,
		TimezoneOffset: getEnv("TIMEZONE_OFFSET", "+05:00"),
	}

	// Automation configuration
	interval, err := time.ParseDuration(getEnv("AUTOMATION_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOMATION_INTERVAL: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("AUTOMATION_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOMATION_WORKERS: %w", err)
	}

	config.Automation = AutomationConfig{
		Enabled:  getEnv("AUTOMATION_ENABLED", "true") == "true",
		Interval: interval,
		Workers:  workers,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.App.Storage {
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: %s, %s", StoragePostgres, StorageMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Automation.Interval <= 0 {
		return fmt.Errorf("AUTOMATION_INTERVAL must be positive")
	}
	if c.Automation.Workers < 1 {
		return fmt.Errorf("AUTOMATION_WORKERS must be at least 1")
	}
	if c.Biometric.MaxResults < 1 {
		return fmt.Errorf("BIOMETRIC_MAX_RESULTS must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
