package main

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	Addr     string     `env:"WIDGETD_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"WIDGETD_LOG_LEVEL" envDefault:"info"`

	// BodyLimit caps request body sizes in bytes.
	BodyLimit int64 `env:"WIDGETD_BODY_LIMIT" envDefault:"1048576"`

	// ThrottleRPS enables service-wide throttling when positive.
	ThrottleRPS   float64 `env:"WIDGETD_THROTTLE_RPS" envDefault:"0"`
	ThrottleBurst int     `env:"WIDGETD_THROTTLE_BURST" envDefault:"10"`
}

// loadConfig reads a .env file when present, then parses the environment.
func loadConfig() (Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
