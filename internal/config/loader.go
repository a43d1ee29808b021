package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory.
const (
	ConfigFileName    = "inferra.yaml"
	ConfigFileNameAlt = "inferra.yml"
)

// findConfigFile returns the config file to use: an explicit path wins,
// then inferra.yaml, then inferra.yml. Empty when none exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration from defaults, an optional config file,
// INFERRA_-prefixed environment variables, and explicitly set flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.addr":       DefaultAddr,
		"sandbox.max_steps": DefaultSandboxMaxSteps,
		"sandbox.timeout":   DefaultSandboxTimeout,
		"log_level":         DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// INFERRA_SERVER__ADDR -> server.addr, INFERRA_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider("INFERRA_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "INFERRA_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// --log-level maps to log_level; dotted flags pass through.
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Name == "addr" {
				key = "server.addr"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
