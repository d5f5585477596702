package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"focusjournal/backend/internal/timer"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string

	LogLevel  string
	LogFormat string
	Timezone  string

	TickInterval      time.Duration
	MinSessionSeconds int
	RecordBreaks      bool
}

// fileConfig mirrors Config in the YAML file. Unset keys keep the defaults.
type fileConfig struct {
	Port              string   `yaml:"port"`
	DBPath            string   `yaml:"db_path"`
	JWTSecret         string   `yaml:"jwt_secret"`
	TokenTTLHours     int      `yaml:"token_ttl_hours"`
	CORSOrigins       []string `yaml:"cors_origins"`
	MigrationsDir     string   `yaml:"migrations_dir"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	Timezone          string   `yaml:"timezone"`
	TickIntervalMS    int      `yaml:"tick_interval_ms"`
	MinSessionSeconds int      `yaml:"min_session_seconds"`
	RecordBreaks      *bool    `yaml:"record_breaks"`
}

func Default() Config {
	return Config{
		Port:              "8080",
		DBPath:            "./data/focusjournal.db",
		JWTSecret:         "change-this-secret",
		TokenTTL:          72 * time.Hour,
		CORSOrigins:       []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		MigrationsDir:     "./migrations",
		LogLevel:          "info",
		LogFormat:         "console",
		Timezone:          "Asia/Tehran",
		TickInterval:      time.Second,
		MinSessionSeconds: timer.DefaultMinSessionSeconds,
	}
}

// Load builds the config from the defaults, then the YAML file at path (or
// CONFIG_FILE when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Policy is the session-recording policy of the timer.
func (c Config) Policy() timer.Policy {
	return timer.Policy{
		MinSessionSeconds: c.MinSessionSeconds,
		RecordBreaks:      c.RecordBreaks,
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.Port, file.Port)
	setString(&c.DBPath, file.DBPath)
	setString(&c.JWTSecret, file.JWTSecret)
	setString(&c.MigrationsDir, file.MigrationsDir)
	setString(&c.LogLevel, file.LogLevel)
	setString(&c.LogFormat, file.LogFormat)
	setString(&c.Timezone, file.Timezone)
	if file.TokenTTLHours > 0 {
		c.TokenTTL = time.Duration(file.TokenTTLHours) * time.Hour
	}
	if len(file.CORSOrigins) > 0 {
		c.CORSOrigins = file.CORSOrigins
	}
	if file.TickIntervalMS > 0 {
		c.TickInterval = time.Duration(file.TickIntervalMS) * time.Millisecond
	}
	if file.MinSessionSeconds > 0 {
		c.MinSessionSeconds = file.MinSessionSeconds
	}
	if file.RecordBreaks != nil {
		c.RecordBreaks = *file.RecordBreaks
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = time.Duration(getEnvInt("TOKEN_TTL_HOURS", int(c.TokenTTL/time.Hour))) * time.Hour
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.MigrationsDir = getEnv("MIGRATIONS_DIR", c.MigrationsDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.TickInterval = time.Duration(getEnvInt("TICK_INTERVAL_MS", int(c.TickInterval/time.Millisecond))) * time.Millisecond
	c.MinSessionSeconds = getEnvInt("MIN_SESSION_SECONDS", c.MinSessionSeconds)
	c.RecordBreaks = getEnvBool("RECORD_BREAKS", c.RecordBreaks)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
