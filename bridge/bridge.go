package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Full-finger/Loquat-sub001/api"
	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
)

// Transport is the publish/subscribe surface the bridge needs.
// *natsclient.Client satisfies it.
type Transport interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

// Submitter accepts decoded batches. *pipeline.Runner satisfies it.
type Submitter interface {
	SubmitWait(ctx context.Context, batch []message.Package) error
}

type healthReporter interface {
	IsHealthy() bool
}

// Config names the subjects the bridge listens and publishes on.
type Config struct {
	Name          string
	Endpoint      string
	InputSubject  string
	OutputSubject string
	Codec         Codec
}

// Stats counts bridge traffic.
type Stats struct {
	Received      int64 `json:"received"`
	Submitted     int64 `json:"submitted"`
	Published     int64 `json:"published"`
	DecodeErrors  int64 `json:"decode_errors"`
	SubmitErrors  int64 `json:"submit_errors"`
	PublishErrors int64 `json:"publish_errors"`
}

// Metric label values.
const (
	directionIn  = "in"
	directionOut = "out"

	statusOK          = "ok"
	statusDecodeError = "decode_error"
	statusSubmitError = "submit_error"
	statusEncodeError = "encode_error"
	statusPublishErr  = "publish_error"
)

// Bridge moves batches between a Transport and a pipeline: decoded input
// goes to a Submitter, and released packages come back through Deliver.
type Bridge struct {
	transport Transport
	cfg       Config
	logger    *slog.Logger
	metrics   *metric.Metrics

	mu        sync.RWMutex
	submitter Submitter
	started   bool

	received      atomic.Int64
	submitted     atomic.Int64
	published     atomic.Int64
	decodeErrors  atomic.Int64
	submitErrors  atomic.Int64
	publishErrors atomic.Int64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records bridge traffic in registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bridge) { b.metrics = registry.CoreMetrics() }
}

// New creates a Bridge. Both subjects are required and must differ.
func New(transport Transport, cfg Config, opts ...Option) (*Bridge, error) {
	if transport == nil {
		return nil, errors.MissingRequired("Bridge", "New", "transport")
	}
	if cfg.InputSubject == "" {
		return nil, errors.MissingRequired("Bridge", "New", "input_subject")
	}
	if cfg.OutputSubject == "" {
		return nil, errors.MissingRequired("Bridge", "New", "output_subject")
	}
	if cfg.InputSubject == cfg.OutputSubject {
		return nil, errors.InvalidFormat("Bridge", "New", "input and output subjects must differ")
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.Name == "" {
		cfg.Name = "nats-bridge"
	}

	b := &Bridge{
		transport: transport,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", cfg.Name, "codec", cfg.Codec.Name())
	return b, nil
}

// Start subscribes to the input subject and forwards every decoded batch to
// submitter. ctx bounds the subscription.
func (b *Bridge) Start(ctx context.Context, submitter Submitter) error {
	if submitter == nil {
		return errors.MissingRequired("Bridge", "Start", "submitter")
	}

	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyStarted, "Bridge", "Start", "subscribe")
	}
	b.submitter = submitter
	b.started = true
	b.mu.Unlock()

	if err := b.transport.Subscribe(ctx, b.cfg.InputSubject, b.handle); err != nil {
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return errors.Wrap(err, "Bridge", "Start", "subscribe "+b.cfg.InputSubject)
	}

	b.logger.Info("Bridge started",
		"input_subject", b.cfg.InputSubject,
		"output_subject", b.cfg.OutputSubject)
	return nil
}

func (b *Bridge) handle(ctx context.Context, data []byte) {
	b.received.Add(1)

	batch, err := b.cfg.Codec.Decode(data)
	if err == nil {
		var pkgs []message.Package
		pkgs, err = batch.ToPackages()
		if err == nil {
			b.submit(ctx, pkgs)
			return
		}
	}

	b.decodeErrors.Add(1)
	b.record(directionIn, statusDecodeError)
	b.logger.Warn("Dropping undecodable batch", "bytes", len(data), "error", err)
}

func (b *Bridge) submit(ctx context.Context, pkgs []message.Package) {
	if len(pkgs) == 0 {
		b.record(directionIn, statusOK)
		return
	}

	b.mu.RLock()
	submitter := b.submitter
	b.mu.RUnlock()

	if err := submitter.SubmitWait(ctx, pkgs); err != nil {
		b.submitErrors.Add(1)
		b.record(directionIn, statusSubmitError)
		b.logger.Error("Failed to submit batch", "packages", len(pkgs), "error", err)
		return
	}
	b.submitted.Add(1)
	b.record(directionIn, statusOK)
}

// Deliver publishes released packages as one batch on the output subject.
// It implements pipeline.Sink and fails until Start has succeeded.
func (b *Bridge) Deliver(ctx context.Context, pkgs []message.Package) error {
	b.mu.RLock()
	started := b.started
	b.mu.RUnlock()
	if !started {
		return errors.Wrap(errors.ErrNotStarted, "Bridge", "Deliver", "publish "+b.cfg.OutputSubject)
	}

	data, err := b.cfg.Codec.Encode(NewBatch(pkgs))
	if err != nil {
		b.publishErrors.Add(1)
		b.record(directionOut, statusEncodeError)
		return errors.Wrap(err, "Bridge", "Deliver", "encode batch")
	}

	if err := b.transport.Publish(ctx, b.cfg.OutputSubject, data); err != nil {
		b.publishErrors.Add(1)
		b.record(directionOut, statusPublishErr)
		return errors.Wrap(err, "Bridge", "Deliver", "publish "+b.cfg.OutputSubject)
	}

	b.published.Add(1)
	b.record(directionOut, statusOK)
	b.logger.Debug("Published released packages", "packages", len(pkgs))
	return nil
}

func (b *Bridge) record(direction, status string) {
	if b.metrics != nil {
		b.metrics.RecordBridgeMessage(direction, status)
	}
}

// Stats returns a snapshot of the traffic counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:      b.received.Load(),
		Submitted:     b.submitted.Load(),
		Published:     b.published.Load(),
		DecodeErrors:  b.decodeErrors.Load(),
		SubmitErrors:  b.submitErrors.Load(),
		PublishErrors: b.publishErrors.Load(),
	}
}

func (b *Bridge) connected() bool {
	b.mu.RLock()
	started := b.started
	b.mu.RUnlock()
	if !started {
		return false
	}
	if hr, ok := b.transport.(healthReporter); ok {
		return hr.IsHealthy()
	}
	return true
}

// Info describes the bridge for the admin surface.
func (b *Bridge) Info() api.AdapterInfo {
	return api.AdapterInfo{
		Name:      b.cfg.Name,
		Protocol:  "nats",
		Endpoint:  b.cfg.Endpoint,
		Codec:     b.cfg.Codec.Name(),
		Connected: b.connected(),
		Subjects:  []string{b.cfg.InputSubject, b.cfg.OutputSubject},
	}
}

// Health is unhealthy until started or while the transport is down, and
// degraded once any batch failed to decode, submit or publish.
func (b *Bridge) Health() health.Status {
	if !b.connected() {
		return health.NewUnhealthy(b.cfg.Name, "not connected")
	}
	s := b.Stats()
	failures := s.DecodeErrors + s.SubmitErrors + s.PublishErrors
	status := health.NewHealthy(b.cfg.Name, "connected")
	if failures > 0 {
		status = health.NewDegraded(b.cfg.Name, "connected with failed batches")
	}
	return status.WithMetrics(&health.Metrics{
		ErrorCount:        int(failures),
		MessagesProcessed: s.Published,
	})
}
