package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// Defaults applied before any file layer.
const (
	DefaultMaxHotReloadEntries = 10
	DefaultLRUCapacity         = 100
	DefaultMetricsPort         = 9090
	DefaultMetricsPath         = "/metrics"
	DefaultPipelineName        = "loquat"
	DefaultWorkers             = 1 // more runner goroutines reorder output batches
	DefaultQueueSize           = 256
	DefaultNATSURL             = "nats://localhost:4222"
	DefaultInputSubject        = "loquat.in"
	DefaultOutputSubject       = "loquat.out"
)

// Config is the complete Loquat configuration.
type Config struct {
	Version  string         `json:"version,omitempty" yaml:"version,omitempty"`
	Core     CoreConfig     `json:"core" yaml:"core"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Bridge   BridgeConfig   `json:"bridge" yaml:"bridge"`
}

// CoreConfig holds the keys consumed by the pipeline core.
type CoreConfig struct {
	MaxHotReloadEntries int `json:"max_hot_reload_entries" yaml:"max_hot_reload_entries"`
	LRUDefaultCapacity  int `json:"lru_default_capacity" yaml:"lru_default_capacity"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// PipelineConfig sizes the pipeline runner.
type PipelineConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workers   int    `json:"workers" yaml:"workers"`
	QueueSize int    `json:"queue_size" yaml:"queue_size"`
}

// BridgeConfig configures the optional NATS ingress/egress bridge.
type BridgeConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url" yaml:"url"`
	InputSubject  string `json:"input_subject" yaml:"input_subject"`
	OutputSubject string `json:"output_subject" yaml:"output_subject"`
	Codec         string `json:"codec" yaml:"codec"` // json, msgpack
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Core: CoreConfig{
			MaxHotReloadEntries: DefaultMaxHotReloadEntries,
			LRUDefaultCapacity:  DefaultLRUCapacity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    DefaultMetricsPort,
			Path:    DefaultMetricsPath,
		},
		Pipeline: PipelineConfig{
			Name:      DefaultPipelineName,
			Workers:   DefaultWorkers,
			QueueSize: DefaultQueueSize,
		},
		Bridge: BridgeConfig{
			URL:           DefaultNATSURL,
			InputSubject:  DefaultInputSubject,
			OutputSubject: DefaultOutputSubject,
			Codec:         "json",
		},
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
	validCodecs  = []string{"json", "msgpack"}
)

// Validate checks the semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Core.MaxHotReloadEntries < 1 {
		return errors.InvalidFormat("Config", "Validate",
			fmt.Sprintf("core.max_hot_reload_entries must be >= 1, got %d", c.Core.MaxHotReloadEntries))
	}
	if c.Core.LRUDefaultCapacity < 1 {
		return errors.InvalidFormat("Config", "Validate",
			fmt.Sprintf("core.lru_default_capacity must be >= 1, got %d", c.Core.LRUDefaultCapacity))
	}

	if !contains(validLevels, strings.ToLower(c.Log.Level)) {
		return errors.InvalidFormat("Config", "Validate", fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if !contains(validFormats, strings.ToLower(c.Log.Format)) {
		return errors.InvalidFormat("Config", "Validate", fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.InvalidFormat("Config", "Validate",
				fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.InvalidFormat("Config", "Validate",
				fmt.Sprintf("metrics.path must start with '/': %q", c.Metrics.Path))
		}
	}

	if c.Pipeline.Name == "" {
		return errors.MissingRequired("Config", "Validate", "pipeline.name")
	}
	if c.Pipeline.Workers < 1 {
		return errors.InvalidFormat("Config", "Validate",
			fmt.Sprintf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.QueueSize < 1 {
		return errors.InvalidFormat("Config", "Validate",
			fmt.Sprintf("pipeline.queue_size must be >= 1, got %d", c.Pipeline.QueueSize))
	}

	if !contains(validCodecs, c.Bridge.Codec) {
		return errors.InvalidFormat("Config", "Validate", fmt.Sprintf("unknown bridge codec %q", c.Bridge.Codec))
	}
	if c.Bridge.Enabled {
		if c.Bridge.URL == "" {
			return errors.MissingRequired("Config", "Validate", "bridge.url")
		}
		if c.Bridge.InputSubject == "" {
			return errors.MissingRequired("Config", "Validate", "bridge.input_subject")
		}
		if c.Bridge.OutputSubject == "" {
			return errors.MissingRequired("Config", "Validate", "bridge.output_subject")
		}
		if c.Bridge.InputSubject == c.Bridge.OutputSubject {
			return errors.InvalidFormat("Config", "Validate", "bridge input and output subjects must differ")
		}
	}

	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// SlogLevel maps the configured level onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	// Every field is a value type, so a struct copy is already deep.
	clone := *c
	return &clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile writes the configuration as JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "marshal config")
	}
	if err := safeWriteFile(path, data); err != nil {
		return errors.IO(err, "Config", "SaveToFile", "write config")
	}
	return nil
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe configuration wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{
		config: cfg.Clone(),
	}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update validates cfg and swaps it in. The previous configuration is
// kept when validation fails.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.MissingRequired("SafeConfig", "Update", "config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}
