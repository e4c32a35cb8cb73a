// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDotEnv is the file LoadDotEnv reads when no path is given.
const DefaultDotEnv = ".env"

// Option adjusts how environment variables are resolved.
type Option func(*env.Options)

// WithPrefix scopes every tagged variable under prefix, so one config struct
// can serve several binaries (ARENA_ vs ARENA_SWEEPER_).
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment resolves variables from the given map instead of the
// process environment.
func WithEnvironment(values map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = values
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any, opts ...Option) error {
	var options env.Options
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := env.ParseWithOptions(target, options); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv copies variables from dotenv files into the process
// environment. Missing files are skipped and variables that are already set
// keep their value.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultDotEnv}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}
