package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port                       string `yaml:"port"`
	DatabaseDriver             string `yaml:"db_driver"`
	DatabaseURL                string `yaml:"db_dsn"`
	SQLitePath                 string `yaml:"sqlite_path"`
	LogLevel                   string `yaml:"log_level"`
	SessionTTLHours            int    `yaml:"session_ttl_hours"`
	RateLimitPerMinute         int    `yaml:"rate_limit_per_min"`
	RateLimitBurst             int    `yaml:"rate_limit_burst"`
	EmployeeRateLimitPerMinute int    `yaml:"employee_rate_limit_per_min"`
	EmployeeRateLimitBurst     int    `yaml:"employee_rate_limit_burst"`
	LeaderRole                 string `yaml:"leader_role"`
	OTLPEndpoint               string `yaml:"otlp_endpoint"`
}

func defaults() Config {
	return Config{
		Port:                       "8080",
		DatabaseDriver:             DriverPostgres,
		SQLitePath:                 "data/shifts.db",
		LogLevel:                   "info",
		SessionTTLHours:            8,
		RateLimitPerMinute:         120,
		RateLimitBurst:             30,
		EmployeeRateLimitPerMinute: 300,
		EmployeeRateLimitBurst:     60,
		LeaderRole:                 "store leader",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// SHIFT_CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("SHIFT_CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = readString("PORT", cfg.Port)
	cfg.DatabaseDriver = strings.ToLower(readString("DB_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseURL = readString("DB_DSN", cfg.DatabaseURL)
	cfg.SQLitePath = readString("SQLITE_PATH", cfg.SQLitePath)
	cfg.LogLevel = readString("LOG_LEVEL", cfg.LogLevel)
	cfg.SessionTTLHours = readInt("SESSION_TTL_HOURS", cfg.SessionTTLHours)
	cfg.RateLimitPerMinute = readInt("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = readInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.EmployeeRateLimitPerMinute = readInt("EMPLOYEE_RATE_LIMIT_PER_MIN", cfg.EmployeeRateLimitPerMinute)
	cfg.EmployeeRateLimitBurst = readInt("EMPLOYEE_RATE_LIMIT_BURST", cfg.EmployeeRateLimitBurst)
	cfg.LeaderRole = readString("LEADER_ROLE", cfg.LeaderRole)
	cfg.OTLPEndpoint = readString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DatabaseDriver)
	}
	if c.SessionTTLHours <= 0 {
		return errors.New("SESSION_TTL_HOURS must be positive")
	}
	return nil
}

func overlayFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if file.Port != "" {
		cfg.Port = file.Port
	}
	if file.DatabaseDriver != "" {
		cfg.DatabaseDriver = file.DatabaseDriver
	}
	if file.DatabaseURL != "" {
		cfg.DatabaseURL = file.DatabaseURL
	}
	if file.SQLitePath != "" {
		cfg.SQLitePath = file.SQLitePath
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.SessionTTLHours > 0 {
		cfg.SessionTTLHours = file.SessionTTLHours
	}
	if file.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = file.RateLimitPerMinute
	}
	if file.RateLimitBurst > 0 {
		cfg.RateLimitBurst = file.RateLimitBurst
	}
	if file.EmployeeRateLimitPerMinute > 0 {
		cfg.EmployeeRateLimitPerMinute = file.EmployeeRateLimitPerMinute
	}
	if file.EmployeeRateLimitBurst > 0 {
		cfg.EmployeeRateLimitBurst = file.EmployeeRateLimitBurst
	}
	if file.LeaderRole != "" {
		cfg.LeaderRole = file.LeaderRole
	}
	if file.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = file.OTLPEndpoint
	}
	return nil
}

func readString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
