package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inferra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultSandboxMaxSteps, cfg.Sandbox.MaxSteps)
	assert.Equal(t, DefaultSandboxTimeout, cfg.Sandbox.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":7070"
  read_timeout: 5s
sandbox:
  max_steps: 1000
log_level: debug
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, uint64(1000), cfg.Sandbox.MaxSteps)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultSandboxTimeout, cfg.Sandbox.Timeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":7070"
`)
	t.Setenv("INFERRA_SERVER__ADDR", ":6060")
	t.Setenv("INFERRA_LOG_LEVEL", "warn")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("INFERRA_SERVER__ADDR", ":6060")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Set("addr", ":5050"))
	require.NoError(t, flags.Set("log-level", "error"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, ":5050", cfg.Server.Addr)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadUnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":4040", "")

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr, "flag defaults must not override config")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level must be one of")
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())

	bad := &Config{}
	bad.ApplyDefaults()
	bad.Server.Addr = ""
	require.Error(t, bad.Validate())

	bad = &Config{}
	bad.ApplyDefaults()
	bad.Sandbox.Timeout = -time.Second
	require.Error(t, bad.Validate())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	cfg.Server.Addr = ":1234"
	cfg.ApplyDefaults()

	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
}
