package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tiremarket/internal/conflict"
)

type Config struct {
	DBDriver      string
	DSN           string
	JWTSecret     string
	AppPort       string
	DefaultLocale conflict.Locale
	LogLevel      string
	GinMode       string
	SeedCatalog   string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

var supportedDrivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

// Load reads the configuration from the environment, after loading .env
// from the working directory when one exists.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil
	cfg, err := FromEnv()
	cfg.EnvFileLoaded = loaded
	return cfg, err
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DBDriver:    strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))),
		DSN:         os.Getenv("DB_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AppPort:     os.Getenv("APP_PORT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		GinMode:     os.Getenv("GIN_MODE"),
		SeedCatalog: os.Getenv("SEED_CATALOG"),
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = "mysql"
	}
	if !supportedDrivers[cfg.DBDriver] {
		return cfg, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DSN == "" {
		// older deployments only set MYSQL_DSN
		cfg.DSN = os.Getenv("MYSQL_DSN")
	}
	if cfg.DSN == "" {
		return cfg, errors.New("DB_DSN not set in environment")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-only"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.DefaultLocale = conflict.LocaleEN
	if raw := os.Getenv("DEFAULT_LOCALE"); raw != "" {
		l, ok := conflict.ParseLocale(raw)
		if !ok {
			return cfg, fmt.Errorf("unsupported DEFAULT_LOCALE %q", raw)
		}
		cfg.DefaultLocale = l
	}

	return cfg, nil
}
