// Package loquat is a staged message pipeline for chat-bot style workloads.
//
// Packages enter the pipeline in batches, each carrying a payload and the
// target sites (users, groups, channels) it is addressed to. Every batch
// flows through nine fixed stages in order:
//
//	pre_input → input → input_middle → pre_process → process_middle
//	          → process → post_process → output → post_output
//
// Each stage is a worker pool. Workers register with a matching rule and a
// priority; a package goes to the first registration whose rule matches it.
// A worker either releases the packages it was handed to the next stage or
// returns modified packages, which are checked with IsOutputSafe before they
// replace the originals.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Intake                       │  stdin lines or a NATS
//	│  (cmd/loquat, bridge)               │  input subject
//	└─────────────────────────────────────┘
//	           ↓ submits batches
//	┌─────────────────────────────────────┐
//	│        pipeline.Runner              │  Bounded queue,
//	│  (pkg/workerpool)                   │  drain on shutdown
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────────────────────────┐
//	│        pipeline.Pipeline            │  Nine pools, sweep
//	│  (pool, worker, matching)           │  dispatch per stage
//	└─────────────────────────────────────┘
//	           ↓ delivers to
//	┌─────────────────────────────────────┐
//	│        Sink                         │  stdout lines or a NATS
//	│                                     │  output subject
//	└─────────────────────────────────────┘
//
// Third-party workers may only join the input, pre_process, process and
// output stages. The other five stages are reserved for the framework.
//
// # Supporting packages
//
//   - config: layered YAML/JSON configuration with LOQUAT_* overrides
//   - hotreload: change detection, reload history and a file watcher
//   - health, metric: component health and Prometheus metrics
//   - api: JSON shapes for the admin HTTP routes
//   - errors: classified errors shared by every package
//
// # Binary
//
//	# Pipe newline-delimited batches through the pipeline
//	./bin/loquat --config configs/loquat.yaml < batches.jsonl
//
//	# Check a configuration and exit
//	./bin/loquat --config configs/loquat.yaml --validate
package loquat
