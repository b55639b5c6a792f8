// Package config reads server settings from the environment. A local .env
// file, if present, is loaded first (godotenv); real environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	// RoundSeconds is the pick window for one round.
	RoundSeconds int
	// ReadySeconds is the ready-up countdown before auto-start.
	ReadySeconds int
	// MinPlayersToStart gates the READY -> IN_PROGRESS transition.
	MinPlayersToStart int

	Debug bool
}

func Default() Config {
	return Config{
		Addr:              ":8080",
		RoundSeconds:      30,
		ReadySeconds:      30,
		MinPlayersToStart: 2,
	}
}

// Load builds the config from defaults overridden by environment variables:
// ADDR, ROUND_SECONDS, READY_SECONDS, MIN_PLAYERS, DEBUG.
func Load() (Config, error) {
	// Missing .env is fine; env vars alone are a valid setup.
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}

	var err error
	if cfg.RoundSeconds, err = intEnv("ROUND_SECONDS", cfg.RoundSeconds); err != nil {
		return cfg, err
	}
	if cfg.ReadySeconds, err = intEnv("READY_SECONDS", cfg.ReadySeconds); err != nil {
		return cfg, err
	}
	if cfg.MinPlayersToStart, err = intEnv("MIN_PLAYERS", cfg.MinPlayersToStart); err != nil {
		return cfg, err
	}
	if cfg.MinPlayersToStart < 2 {
		return cfg, fmt.Errorf("MIN_PLAYERS must be at least 2, got %d", cfg.MinPlayersToStart)
	}

	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug, err = strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("DEBUG: %w", err)
		}
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return fallback, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
