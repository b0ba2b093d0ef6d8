package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/config"
)

type defaultsConfig struct {
	Rate     int           `env:"CFGTEST_RATE" envDefault:"5"`
	Delay    time.Duration `env:"CFGTEST_DELAY" envDefault:"100ms"`
	Enabled  bool          `env:"CFGTEST_ENABLED" envDefault:"true"`
	Patterns []string      `env:"CFGTEST_PATTERNS" envDefault:"a,b" envSeparator:","`
}

type overrideConfig struct {
	Rate int `env:"CFGTEST_OVERRIDE_RATE" envDefault:"5"`
}

type prefixedConfig struct {
	Threshold int `env:"THRESHOLD" envDefault:"4"`
}

type requiredConfig struct {
	Value string `env:"CFGTEST_REQUIRED,required"`
}

type fileConfig struct {
	FromFile string `env:"CFGTEST_FROM_FILE"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 5, cfg.Rate)
	assert.Equal(t, 100*time.Millisecond, cfg.Delay)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"a", "b"}, cfg.Patterns)
}

func TestLoad_FromEnvironmentAndCache(t *testing.T) {
	t.Setenv("CFGTEST_OVERRIDE_RATE", "9")

	var first overrideConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, 9, first.Rate)

	t.Setenv("CFGTEST_OVERRIDE_RATE", "11")

	var cached overrideConfig
	require.NoError(t, config.Load(&cached))
	assert.Equal(t, 9, cached.Rate, "second load should come from cache")

	var fresh overrideConfig
	require.NoError(t, config.Load(&fresh, config.WithoutCache()))
	assert.Equal(t, 11, fresh.Rate)
}

func TestLoad_Prefix(t *testing.T) {
	t.Setenv("CFGA_THRESHOLD", "7")
	t.Setenv("CFGB_THRESHOLD", "2")

	var a, b prefixedConfig
	require.NoError(t, config.Load(&a, config.WithPrefix("CFGA_")))
	require.NoError(t, config.Load(&b, config.WithPrefix("CFGB_")))
	assert.Equal(t, 7, a.Threshold)
	assert.Equal(t, 2, b.Threshold)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("nil pointer", func(t *testing.T) {
		var cfg *defaultsConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("missing required", func(t *testing.T) {
		os.Unsetenv("CFGTEST_REQUIRED")
		var cfg requiredConfig
		assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_FROM_FILE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFGTEST_FROM_FILE") })

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(path)))
	assert.Equal(t, "from-file", cfg.FromFile)
}
