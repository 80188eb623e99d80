// Package config loads tracker settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/notify"
)

// SMTP holds outbound mail settings.
type SMTP struct {
	Host     string `env:"TRACKER_SMTP_HOST"`
	Port     int    `env:"TRACKER_SMTP_PORT" envDefault:"587"`
	Username string `env:"TRACKER_SMTP_USERNAME"`
	Password string `env:"TRACKER_SMTP_PASSWORD"`
	From     string `env:"TRACKER_SMTP_FROM"`
}

// Config is the process configuration.
type Config struct {
	DBPath       string `env:"TRACKER_DB_PATH"`
	HTTPAddr     string `env:"TRACKER_HTTP_ADDR" envDefault:":5005"`
	CalendarName string `env:"TRACKER_CALENDAR_NAME" envDefault:"Project Tracker"`
	CalendarFile string `env:"TRACKER_CALENDAR_FILE"`
	CalendarURL  string `env:"TRACKER_CALENDAR_URL"`
	OTelEndpoint string `env:"TRACKER_OTEL_ENDPOINT"`
	SMTP         SMTP
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given .env files (".env" when none are named) into the
// environment without overriding variables already set, then parses Config.
// Missing .env files are ignored.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		path, err := db.DefaultPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}
	return cfg, nil
}

// Mail converts the SMTP settings for the notify package.
func (c Config) Mail() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	}
}
