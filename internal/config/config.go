// Package config loads the simulator's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lrusim/internal/apperr"
	"lrusim/internal/cache"
)

// Config is the whole application configuration.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Cache struct {
		// DefaultCapacity is used when a session is initialized without one.
		DefaultCapacity int `yaml:"default_capacity"`
	} `yaml:"cache"`

	Session struct {
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
		ReapInterval time.Duration `yaml:"reap_interval"` // <= 0 disables reaping
		MaxSessions  int           `yaml:"max_sessions"`  // <= 0 means unlimited
	} `yaml:"session"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Cache.DefaultCapacity = 3
	c.Session.IdleTimeout = 30 * time.Minute
	c.Session.ReapInterval = time.Minute
	c.Session.MaxSessions = 1024
	c.Log.Level = "info"
	c.Log.Format = "text"
	return &c
}

// Load reads path over the defaults. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	// #nosec G304 - path comes from the operator's -config flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Cache.DefaultCapacity < 1 || c.Cache.DefaultCapacity > cache.MaxCapacity {
		return apperr.New(apperr.CodeInvalidConfiguration, "cache.default_capacity out of range").
			WithDetails("got %d, want 1..%d", c.Cache.DefaultCapacity, cache.MaxCapacity)
	}
	if c.Server.Addr == "" {
		return apperr.New(apperr.CodeInvalidConfiguration, "server.addr is required")
	}
	if c.Session.ReapInterval > 0 && c.Session.IdleTimeout <= 0 {
		return apperr.New(apperr.CodeInvalidConfiguration, "session.idle_timeout must be positive when reaping is enabled")
	}
	return nil
}
