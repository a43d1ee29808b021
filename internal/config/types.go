// Package config provides configuration types and loading for the inferra
// service and CLI. Precedence, highest first: flags, environment
// variables, config file, built-in defaults.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SandboxConfig bounds script execution.
type SandboxConfig struct {
	MaxSteps uint64        `koanf:"max_steps"`
	Timeout  time.Duration `koanf:"timeout"`
}

// DatasetConfig controls dataset loading.
type DatasetConfig struct {
	// Dir restricts file references to a base directory when set.
	Dir string `koanf:"dir"`

	// MaxRows caps loaded dataset size; 0 means unlimited.
	MaxRows int `koanf:"max_rows"`
}

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Sandbox SandboxConfig `koanf:"sandbox"`
	Dataset DatasetConfig `koanf:"dataset"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	Verbose  bool   `koanf:"verbose"`
}

// Validate checks value ranges after loading.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox.timeout must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
