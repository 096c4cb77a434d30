package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOQUAT"

//go:embed schema.json
var schemaDocument string

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaDocument))
	})
	return compiledSchema, schemaErr
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with validation enabled.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  EnvPrefix,
	}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles schema and semantic validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies defaults, every file layer, then environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, err
		}
		if l.validation {
			if err := validateDocument(path, raw); err != nil {
				return nil, err
			}
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.Parse(err, "Loader", "Load", "merge "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads a layer as a generic map, decoding by extension.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.IO(err, "Loader", "Load", "read "+path)
	}
	return decodeDocument(path, data)
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	var raw map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Parse(err, "Loader", "Load", "decode yaml "+path)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, errors.Parse(err, "Loader", "Load", "inspect json "+path)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Parse(err, "Loader", "Load", "decode json "+path)
		}
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// validateDocument checks a raw layer against the embedded schema.
func validateDocument(path string, raw map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return errors.WrapFatal(err, "Loader", "Validate", "compile schema")
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return errors.Parse(err, "Loader", "Validate", "schema check "+path)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.InvalidFormat("Loader", "Validate",
		fmt.Sprintf("%s: %s", path, strings.Join(msgs, "; ")))
}

// mergeFromMap overlays only the keys present in override.
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	lookup := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		val, ok := os.LookupEnv(key)
		if !ok || val == "" {
			return "", false, nil
		}
		if err := validateEnvVar(key, val); err != nil {
			return "", false, errors.InvalidFormat("Loader", "applyEnvOverrides", err.Error())
		}
		return val, true, nil
	}

	intOverride := func(name string, dst *int) error {
		val, ok, err := lookup(name)
		if err != nil || !ok {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return errors.InvalidFormat("Loader", "applyEnvOverrides",
				fmt.Sprintf("%s_%s must be an integer, got %q", l.envPrefix, name, val))
		}
		*dst = n
		return nil
	}

	if err := intOverride("MAX_HOT_RELOAD_ENTRIES", &cfg.Core.MaxHotReloadEntries); err != nil {
		return err
	}
	if err := intOverride("LRU_DEFAULT_CAPACITY", &cfg.Core.LRUDefaultCapacity); err != nil {
		return err
	}

	if val, ok, err := lookup("LOG_LEVEL"); err != nil {
		return err
	} else if ok {
		cfg.Log.Level = strings.ToLower(val)
	}

	if val, ok, err := lookup("NATS_URL"); err != nil {
		return err
	} else if ok {
		cfg.Bridge.URL = val
	}
	return nil
}
