package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // Timezone lookups must not depend on the host's zoneinfo

	"gopkg.in/yaml.v3"
)

// Supported task store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds process-level settings. Values come from an optional YAML file
// (CONFIG_FILE) and are overridden by environment variables.
type Config struct {
	Port        int    `yaml:"port"`
	StoreDriver string `yaml:"store_driver"`
	DBURL       string `yaml:"db_url"`
	PostgresURL string `yaml:"postgres_url"`
	Timezone    string `yaml:"timezone"`

	ChannelSecret string `yaml:"channel_secret"`
	ChannelToken  string `yaml:"channel_access_token"`
	AdminUserID   string `yaml:"admin_user_id"`

	// APIToken guards the JSON task API. The API is not served when empty.
	APIToken string `yaml:"api_token"`

	SendTimeout          time.Duration `yaml:"send_timeout"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`
	RetryMaxAttempts     int           `yaml:"retry_max_attempts"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:                 8080,
		StoreDriver:          DriverSQLite,
		DBURL:                "schedule.db",
		Timezone:             "Europe/Moscow",
		SendTimeout:          10 * time.Second,
		RetryInitialInterval: 30 * time.Second,
		RetryMaxInterval:     10 * time.Minute,
		RetryMaxAttempts:     5,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// Load reads the YAML file named by CONFIG_FILE (if any), applies environment
// overrides and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.DBURL, "BLUEPRINT_DB_URL")
	setString(&c.DBURL, "DB_URL")
	setString(&c.PostgresURL, "POSTGRES_URL")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.ChannelSecret, "CHANNEL_SECRET")
	setString(&c.ChannelToken, "CHANNEL_ACCESS_TOKEN")
	setString(&c.AdminUserID, "MY_USER_ID")
	setString(&c.APIToken, "API_TOKEN")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if err := setInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.RetryMaxAttempts, "RETRY_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setDuration(&c.SendTimeout, "SEND_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.RetryInitialInterval, "RETRY_INITIAL_INTERVAL"); err != nil {
		return err
	}
	return setDuration(&c.RetryMaxInterval, "RETRY_MAX_INTERVAL")
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBURL == "" {
			return fmt.Errorf("db_url must be set for the %s store", DriverSQLite)
		}
	case DriverPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres_url must be set for the %s store", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry_max_attempts must not be negative")
	}
	return nil
}

// Location resolves the canonical timezone all task times are normalized into.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = i
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
