package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/bridge"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const quietConfig = `
version: "2.0.0"
log:
  level: warn
  format: json
metrics:
  enabled: false
pipeline:
  name: cli
  workers: 1
  queue_size: 4
`

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("LOQUAT_CONFIG", "")
	t.Setenv("LOQUAT_LOG_FORMAT", "")
	t.Setenv("LOQUAT_DEBUG", "")
	t.Setenv("LOQUAT_SHUTDOWN_TIMEOUT", "")
	t.Setenv("LOQUAT_WATCH", "")

	cfg, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)

	assert.Empty(t, cfg.ConfigPath)
	assert.Empty(t, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Watch)
	assert.NoError(t, validateFlags(cfg))
}

func TestParseFlags_EnvAndDebug(t *testing.T) {
	t.Setenv("LOQUAT_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LOQUAT_DEBUG", "true")

	cfg, err := parseFlags([]string{"-log-level", "error", "-c", "x.yaml"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "x.yaml", cfg.ConfigPath)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags([]string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestValidateFlags(t *testing.T) {
	valid := func() *CLIConfig {
		return &CLIConfig{ShutdownTimeout: time.Second}
	}

	tests := []struct {
		name   string
		mutate func(*CLIConfig)
		errMsg string
	}{
		{"valid", func(*CLIConfig) {}, ""},
		{"missing config", func(c *CLIConfig) { c.ConfigPath = "/does/not/exist.yaml" }, "config file not found"},
		{"bad level", func(c *CLIConfig) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad format", func(c *CLIConfig) { c.LogFormat = "xml" }, "invalid log format"},
		{"zero timeout", func(c *CLIConfig) { c.ShutdownTimeout = 0 }, "shutdown timeout"},
		{"version skips checks", func(c *CLIConfig) { c.ShowVersion = true; c.LogLevel = "trace" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateFlags(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-version"}, strings.NewReader(""), &stdout, io.Discard))
	assert.Equal(t, "loquat version "+Version+"\n", stdout.String())
}

func TestRun_ValidateOnly(t *testing.T) {
	path := writeConfig(t, "config.yaml", quietConfig)

	var stdout bytes.Buffer
	err := run([]string{"-config", path, "-validate"}, strings.NewReader(""), &stdout, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "config.json", `{"core": {"lru_default_capacity": 0}}`)

	err := run([]string{"-config", path}, strings.NewReader(""), io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestRun_PipesStdinToStdout(t *testing.T) {
	path := writeConfig(t, "config.yaml", quietConfig)

	stdin := strings.Join([]string{
		`{"packages":[{"id":"p1","payload":"hi","target_sites":[{"site_id":"42","kind":"user","name":"alice"}]}]}`,
		``,
		`not json`,
		`{"packages":[]}`,
	}, "\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", path, "-watch=false", "-shutdown-timeout", "5s"},
		strings.NewReader(stdin), &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1)

	batch, err := bridge.JSONCodec{}.Decode([]byte(lines[0]))
	require.NoError(t, err)
	require.Len(t, batch.Packages, 1)
	assert.Equal(t, "p1", batch.Packages[0].ID)
	assert.Equal(t, "hi", batch.Packages[0].Payload)
	assert.Equal(t, []bridge.Site{{ID: "42", Kind: "user", Name: "alice"}}, batch.Packages[0].TargetSites)

	assert.Contains(t, stderr.String(), "Skipping invalid batch")
}
