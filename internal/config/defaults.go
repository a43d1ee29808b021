package config

import "time"

// Default configuration values.
const (
	DefaultAddr            = ":8090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultSandboxMaxSteps = uint64(10_000_000)
	DefaultSandboxTimeout  = 10 * time.Second

	DefaultLogLevel = "info"
)

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Sandbox.MaxSteps == 0 {
		c.Sandbox.MaxSteps = DefaultSandboxMaxSteps
	}
	if c.Sandbox.Timeout == 0 {
		c.Sandbox.Timeout = DefaultSandboxTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
