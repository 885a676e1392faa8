// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "adventure"

// Config holds every setting the client needs. Command-line flags override these values.
type Config struct {
	BackendURL  string        `envconfig:"BACKEND_URL" default:"http://localhost:3000"`
	Encoding    string        `envconfig:"ENCODING" default:"messages"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"3m"`
	CacheDir    string        `envconfig:"CACHE_DIR"`
	LogFile     string        `envconfig:"LOG_FILE"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string        `envconfig:"LOG_ENCODING" default:"json"`
}

// Load reads .env files (when present) and then ADVENTURE_* variables.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later with less context.
func (c Config) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.BackendURL))
	if err != nil {
		return fmt.Errorf("backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend URL must be http or https, got %q", c.BackendURL)
	}
	switch strings.ToLower(strings.TrimSpace(c.Encoding)) {
	case "messages", "prompt":
	default:
		return fmt.Errorf("encoding must be messages or prompt, got %q", c.Encoding)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}
