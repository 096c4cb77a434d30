package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "loquat"

// Metrics contains the platform-level pipeline metrics. Labels use pool IDs,
// so several pipelines may share one registry.
type Metrics struct {
	PackagesReceived  *prometheus.CounterVec
	PackagesReleased  *prometheus.CounterVec
	PackagesDropped   *prometheus.CounterVec
	WorkerInvocations *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	WorkersRegistered *prometheus.GaugeVec
	HotReloads        *prometheus.CounterVec
	BridgeMessages    *prometheus.CounterVec
}

// Drop reasons for PackagesDropped.
const (
	DropDeadLoop = "dead_loop"
	DropConsumed = "consumed"
)

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PackagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "packages_received_total",
				Help:      "Packages handed to a pool",
			},
			[]string{"pool"},
		),
		PackagesReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "packages_released_total",
				Help:      "Packages released by a pool to the next stage",
			},
			[]string{"pool"},
		),
		PackagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "packages_dropped_total",
				Help:      "Packages dropped inside a pool (dead_loop or consumed)",
			},
			[]string{"pool", "reason"},
		),
		WorkerInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "invocations_total",
				Help:      "Worker HandleBatch calls by result",
			},
			[]string{"pool", "worker", "result"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "dispatch_duration_seconds",
				Help:      "Time for a pool to run a batch to fixpoint",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool"},
		),
		WorkersRegistered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "workers_registered",
				Help:      "Workers currently registered in a pool",
			},
			[]string{"pool"},
		),
		HotReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hotreload",
				Name:      "reloads_total",
				Help:      "Hot reload attempts by outcome",
			},
			[]string{"outcome"},
		),
		BridgeMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "messages_total",
				Help:      "Bridge messages by direction and status",
			},
			[]string{"direction", "status"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.PackagesReceived,
		c.PackagesReleased,
		c.PackagesDropped,
		c.WorkerInvocations,
		c.DispatchDuration,
		c.WorkersRegistered,
		c.HotReloads,
		c.BridgeMessages,
	}
}

// RecordReceived counts packages entering a pool.
func (c *Metrics) RecordReceived(pool string, n int) {
	c.PackagesReceived.WithLabelValues(pool).Add(float64(n))
}

// RecordReleased counts packages leaving a pool.
func (c *Metrics) RecordReleased(pool string, n int) {
	c.PackagesReleased.WithLabelValues(pool).Add(float64(n))
}

// RecordDropped counts a dropped package.
func (c *Metrics) RecordDropped(pool, reason string) {
	c.PackagesDropped.WithLabelValues(pool, reason).Inc()
}

// RecordInvocation counts one HandleBatch call.
func (c *Metrics) RecordInvocation(pool, worker, result string) {
	c.WorkerInvocations.WithLabelValues(pool, worker, result).Inc()
}

// RecordDispatchDuration records the time a pool spent on one batch.
func (c *Metrics) RecordDispatchDuration(pool string, duration time.Duration) {
	c.DispatchDuration.WithLabelValues(pool).Observe(duration.Seconds())
}

// RecordWorkerCount sets the registered worker gauge.
func (c *Metrics) RecordWorkerCount(pool string, n int) {
	c.WorkersRegistered.WithLabelValues(pool).Set(float64(n))
}

// RecordHotReload counts a reload attempt.
func (c *Metrics) RecordHotReload(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.HotReloads.WithLabelValues(outcome).Inc()
}

// RecordBridgeMessage counts a bridge message.
func (c *Metrics) RecordBridgeMessage(direction, status string) {
	c.BridgeMessages.WithLabelValues(direction, status).Inc()
}
