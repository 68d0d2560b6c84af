// Package config loads service configuration from an optional YAML file
// overridden by process environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration values for the event calendar service.
type Config struct {
	HTTPPort  int    `yaml:"http_port"`
	SQLiteDSN string `yaml:"sqlite_dsn"`
	Timezone  string `yaml:"timezone"`
	FeedName  string `yaml:"feed_name"`
}

// Load reads the YAML file named by EVENTS_CONFIG when set, then applies
// environment overrides. Defaults cover every field so an empty environment
// yields a working configuration.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:events.db?_pragma=busy_timeout(5000)",
		Timezone:  "UTC",
		FeedName:  "Events",
	}

	if path := strings.TrimSpace(os.Getenv("EVENTS_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("EVENTS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "EVENTS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("EVENTS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tz := strings.TrimSpace(os.Getenv("EVENTS_TIMEZONE")); tz != "" {
		cfg.Timezone = tz
	}

	if name := strings.TrimSpace(os.Getenv("EVENTS_FEED_NAME")); name != "" {
		cfg.FeedName = name
	}

	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, "http_port")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "timezone")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
