// Package config loads and validates Loquat configuration.
//
// Configuration is assembled in layers: built-in defaults, then each file
// added with AddLayer (JSON or YAML, chosen by extension), then environment
// overrides prefixed with LOQUAT_. Each file layer is checked against an
// embedded JSON schema before it is merged, and the merged result is checked
// by Config.Validate.
//
// Basic usage:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/production.json")
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Supported environment overrides:
//
//	LOQUAT_MAX_HOT_RELOAD_ENTRIES  core.max_hot_reload_entries
//	LOQUAT_LRU_DEFAULT_CAPACITY    core.lru_default_capacity
//	LOQUAT_LOG_LEVEL               log.level
//	LOQUAT_NATS_URL                bridge.url
//
// SafeConfig wraps a Config for concurrent readers. Get returns a copy and
// Update swaps in a new value only after it validates.
package config
