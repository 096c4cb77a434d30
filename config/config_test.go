package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Core.MaxHotReloadEntries)
	assert.Equal(t, DefaultLRUCapacity, cfg.Core.LRUDefaultCapacity)
	assert.False(t, cfg.Bridge.Enabled)
	assert.Equal(t, "json", cfg.Bridge.Codec)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{"zero hot reload entries", func(c *Config) { c.Core.MaxHotReloadEntries = 0 }, errors.ErrInvalidFormat},
		{"negative lru capacity", func(c *Config) { c.Core.LRUDefaultCapacity = -1 }, errors.ErrInvalidFormat},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, errors.ErrInvalidFormat},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, errors.ErrInvalidFormat},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, errors.ErrInvalidFormat},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, errors.ErrInvalidFormat},
		{"empty pipeline name", func(c *Config) { c.Pipeline.Name = "" }, errors.ErrMissingRequired},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, errors.ErrInvalidFormat},
		{"zero queue", func(c *Config) { c.Pipeline.QueueSize = 0 }, errors.ErrInvalidFormat},
		{"unknown codec", func(c *Config) { c.Bridge.Codec = "protobuf" }, errors.ErrInvalidFormat},
		{"bridge without url", func(c *Config) {
			c.Bridge.Enabled = true
			c.Bridge.URL = ""
		}, errors.ErrMissingRequired},
		{"bridge loop", func(c *Config) {
			c.Bridge.Enabled = true
			c.Bridge.OutputSubject = c.Bridge.InputSubject
		}, errors.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, errors.KindConfig, errors.KindOf(err))
		})
	}
}

func TestConfig_MetricsDisabledSkipsPortCheck(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: ""}.SlogLevel())
}

func TestConfig_CloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Core.LRUDefaultCapacity = 7
	clone.Bridge.URL = "nats://elsewhere:4222"

	assert.Equal(t, DefaultLRUCapacity, cfg.Core.LRUDefaultCapacity)
	assert.Equal(t, DefaultNATSURL, cfg.Bridge.URL)

	var nilCfg *Config
	assert.Nil(t, nilCfg.Clone())
}

func TestConfig_SaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := Default()
	cfg.Core.MaxHotReloadEntries = 3

	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_String(t *testing.T) {
	assert.Contains(t, Default().String(), `"max_hot_reload_entries": 10`)
}

func TestSafeConfig_UpdateValidates(t *testing.T) {
	sc := NewSafeConfig(nil)
	assert.Equal(t, Default(), sc.Get())

	bad := Default()
	bad.Core.LRUDefaultCapacity = 0
	require.Error(t, sc.Update(bad))
	assert.Equal(t, DefaultLRUCapacity, sc.Get().Core.LRUDefaultCapacity)

	require.Error(t, sc.Update(nil))

	good := Default()
	good.Core.LRUDefaultCapacity = 512
	require.NoError(t, sc.Update(good))
	assert.Equal(t, 512, sc.Get().Core.LRUDefaultCapacity)

	// mutating the caller's copy does not leak in
	good.Core.LRUDefaultCapacity = 1
	assert.Equal(t, 512, sc.Get().Core.LRUDefaultCapacity)
}

func TestSafeConfig_ConcurrentAccess(t *testing.T) {
	sc := NewSafeConfig(Default())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				assert.NotNil(t, cfg)
			}
		}()
		go func(i int) {
			defer wg.Done()
			cfg := Default()
			cfg.Pipeline.Name = fmt.Sprintf("pipeline-%d", i)
			assert.NoError(t, sc.Update(cfg))
		}(i)
	}
	wg.Wait()

	assert.NotEmpty(t, sc.Get().Pipeline.Name)
}
