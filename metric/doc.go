// Package metric provides Prometheus-based metrics collection and an HTTP
// server for Loquat pipeline monitoring.
//
// The package offers a centralized metrics registry holding both the core
// pipeline metrics and custom service-specific metrics, plus a small HTTP
// server exposing them in Prometheus format.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, nil)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        slog.Error("metrics server", "error", err)
//	    }
//	}()
//
//	core := registry.CoreMetrics()
//	core.RecordReceived("bot.process", 3)
//	core.RecordDropped("bot.process", metric.DropDeadLoop)
//
// # Core Metrics
//
// All core metrics live under the "loquat" namespace:
//
//   - pool_packages_received_total, pool_packages_released_total (by pool)
//   - pool_packages_dropped_total (by pool and reason: dead_loop, consumed)
//   - pool_dispatch_duration_seconds (by pool)
//   - pool_workers_registered (by pool)
//   - worker_invocations_total (by pool, worker and result)
//   - hotreload_reloads_total (by outcome)
//   - bridge_messages_total (by direction and status)
//
// Pool labels are pool IDs ("<pipeline>.<pool type>"), so several pipelines
// can share a registry.
//
// # Service Metrics
//
// Components register their own collectors through MetricsRegistrar. Keys
// are "<service>.<metric>"; registering the same key twice, or a collector
// Prometheus already knows, fails with an invalid-class error.
//
// # Health
//
// The server's /health endpoint calls the supplied HealthFunc and answers 503
// when it reports unhealthy.
package metric
