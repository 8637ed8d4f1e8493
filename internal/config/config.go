// Package config loads server configuration from the environment, following
// the defaults-plus-override shape of the teacher's YAML loader but sourced
// from env vars (optionally backed by a .env file) per the external
// interfaces this server exposes.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to boot the server.
type Config struct {
	// ServerURL is the host:port the WebSocket listener binds to.
	ServerURL string
	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string
}

const defaultServerURL = "127.0.0.1:9000"

// Load reads configuration from the process environment. A .env file in the
// working directory is loaded first, if present, via godotenv -- missing is
// not an error, matching the teacher's "absent config file -> defaults"
// tolerance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServerURL: defaultServerURL,
	}

	if v, ok := os.LookupEnv("SERVER_URL"); ok && v != "" {
		cfg.ServerURL = v
	}

	dbURL, ok := os.LookupEnv("DATABASE_URL")
	if !ok || dbURL == "" {
		return cfg, fmt.Errorf("loading config: DATABASE_URL is required")
	}
	cfg.DatabaseURL = dbURL

	return cfg, nil
}
