package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Full-finger/Loquat-sub001/bridge"
	"github.com/Full-finger/Loquat-sub001/config"
	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/hotreload"
	"github.com/Full-finger/Loquat-sub001/matching"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/natsclient"
	"github.com/Full-finger/Loquat-sub001/pipeline"
	"github.com/Full-finger/Loquat-sub001/pool"
	"github.com/Full-finger/Loquat-sub001/worker"
)

// configItem is the hot-reload history name of the configuration file.
const configItem = "config"

// app owns every long-lived component of the process.
type app struct {
	cfg        *config.SafeConfig
	configPath string
	overrides  func(*config.Config)
	level      *slog.LevelVar
	logger     *slog.Logger

	registry *metric.MetricsRegistry
	monitor  *health.Monitor
	pipeline *pipeline.Pipeline
	runner   *pipeline.Runner

	nats   *natsclient.Client
	bridge *bridge.Bridge

	detector *hotreload.Detector
	reloader *hotreload.Reloader
	server   *metric.Server

	background     *errgroup.Group
	stopBackground context.CancelFunc
	reloadLimiter  *rate.Limiter
}

// appDeps carries what newApp needs from the CLI layer.
type appDeps struct {
	configPath string
	overrides  func(*config.Config)
	level      *slog.LevelVar
	logger     *slog.Logger
	stdout     io.Writer
}

func newApp(cfg *config.Config, deps appDeps) (*app, error) {
	if deps.overrides == nil {
		deps.overrides = func(*config.Config) {}
	}
	if deps.level == nil {
		deps.level = new(slog.LevelVar)
	}
	if deps.logger == nil {
		deps.logger = slog.Default()
	}
	if deps.stdout == nil {
		deps.stdout = os.Stdout
	}

	a := &app{
		cfg:        config.NewSafeConfig(cfg),
		configPath: deps.configPath,
		overrides:  deps.overrides,
		level:      deps.level,
		logger:     deps.logger,
		registry:   metric.NewMetricsRegistry(),
		monitor:    health.NewMonitor(),
		// forced reloads re-read and re-validate the whole file
		reloadLimiter: rate.NewLimiter(rate.Limit(1), 3),
	}

	a.pipeline = pipeline.New(cfg.Pipeline.Name,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.registry))
	if err := registerBuiltins(a.pipeline, a.logger); err != nil {
		return nil, err
	}
	a.monitor.Watch("pipeline", a.pipeline)

	var sink pipeline.Sink
	if cfg.Bridge.Enabled {
		b, err := a.setupBridge(cfg.Bridge)
		if err != nil {
			return nil, err
		}
		sink = b
	} else {
		sink = newLineSink(deps.stdout)
	}

	a.runner = pipeline.NewRunner(a.pipeline, sink,
		pipeline.RunnerConfig{Workers: cfg.Pipeline.Workers, QueueSize: cfg.Pipeline.QueueSize},
		pipeline.WithRunnerLogger(a.logger),
		pipeline.WithRunnerMetrics(a.registry))

	a.detector = hotreload.NewDetector(cfg.Core.LRUDefaultCapacity)
	a.reloader = hotreload.NewReloader(
		hotreload.NewHistory(cfg.Core.MaxHotReloadEntries),
		hotreload.WithDetector(a.detector),
		hotreload.WithLogger(a.logger),
		hotreload.WithMetrics(a.registry))

	if cfg.Metrics.Enabled {
		a.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, a.registry, a.healthCheck)
		a.server.Handle("/api/", newAdminHandler(a))
	}

	return a, nil
}

// registerBuiltins installs the framework workers: a debug trace at the
// front of the pipeline and an echo releaser at output.
func registerBuiltins(p *pipeline.Pipeline, logger *slog.Logger) error {
	trace := worker.New("trace", worker.Custom("trace"), nil,
		func(_ context.Context, pkgs []message.Package) worker.Result {
			for _, pkg := range pkgs {
				logger.Debug("Package entered pipeline",
					"package_id", pkg.ID(),
					"package_target_sites", pkg.TargetSites())
			}
			return worker.Release()
		})
	if err := p.Register(pool.PreInput, worker.NewRegistration(trace, matching.All(), 0)); err != nil {
		return errors.Wrap(err, "main", "registerBuiltins", "register trace")
	}

	echo := worker.New("echo", worker.TypeOutput, nil, nil)
	if err := p.Register(pool.Output, worker.NewRegistration(echo, matching.All(), 0)); err != nil {
		return errors.Wrap(err, "main", "registerBuiltins", "register echo")
	}
	return nil
}

func (a *app) setupBridge(cfg config.BridgeConfig) (*bridge.Bridge, error) {
	codec, err := bridge.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	client, err := natsclient.NewClient(cfg.URL,
		natsclient.WithLogger(a.logger),
		natsclient.WithName(appName),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			if !healthy {
				a.logger.Warn("NATS connection lost, packages in flight may not be published")
			}
		}))
	if err != nil {
		return nil, err
	}

	b, err := bridge.New(client, bridge.Config{
		Endpoint:      cfg.URL,
		InputSubject:  cfg.InputSubject,
		OutputSubject: cfg.OutputSubject,
		Codec:         codec,
	}, bridge.WithLogger(a.logger), bridge.WithMetrics(a.registry))
	if err != nil {
		return nil, err
	}

	a.nats = client
	a.bridge = b
	return b, nil
}

// start brings components up in dependency order: the runner before any
// intake, the bridge after the connection. Background tasks run in an
// errgroup that shutdown cancels and waits for.
func (a *app) start(ctx context.Context, watch bool) error {
	// A signal ends intake; the runner keeps its workers until shutdown
	// drains the queue.
	if err := a.runner.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	if a.nats != nil {
		if err := a.nats.Connect(ctx); err != nil {
			return err
		}
		a.monitor.Watch("nats", a.nats)
		if err := a.bridge.Start(ctx, a.runner); err != nil {
			return err
		}
		a.monitor.Watch("bridge", a.bridge)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	a.stopBackground = cancel
	a.background, bgCtx = errgroup.WithContext(bgCtx)

	if a.configPath != "" {
		// Seed the detector and history with the file already loaded.
		if _, _, err := a.reloader.ReloadIfChanged(ctx, configItem, a.configPath, a.loadConfig); err != nil {
			a.logger.Warn("Initial config fingerprint failed", "path", a.configPath, "error", err)
		}
		if watch {
			w, err := hotreload.NewWatcher(a.reloader, configItem, a.configPath, a.loadConfig,
				hotreload.WithWatcherLogger(a.logger))
			if err != nil {
				return err
			}
			a.background.Go(func() error { return w.Run(bgCtx) })
		}
	}

	if a.server != nil {
		served := make(chan struct{})
		a.background.Go(func() error {
			defer close(served)
			return a.server.Start()
		})
		a.background.Go(func() error {
			<-bgCtx.Done()
			return a.stopServer(served)
		})
		a.logger.Info("Metrics server started", "address", a.server.Address())
	}

	return nil
}

// stopServer keeps asking the server to stop until Start has returned: a
// Stop that lands before Start has bound the listener is a no-op.
func (a *app) stopServer(served <-chan struct{}) error {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.server.Stop(ctx)
		cancel()
		if err != nil {
			return err
		}
		select {
		case <-served:
			return nil
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// loadConfig is the hot-reload LoadFunc for the configuration file. Log
// level and detector capacity apply immediately; other sections take
// effect on restart.
func (a *app) loadConfig(_ context.Context) (*hotreload.VersionData, error) {
	next, err := config.NewLoader().LoadFile(a.configPath)
	if err != nil {
		return nil, err
	}
	a.overrides(next)
	if err := a.cfg.Update(next); err != nil {
		return nil, err
	}

	a.level.Set(next.Log.SlogLevel())
	a.detector.Resize(next.Core.LRUDefaultCapacity)

	data, err := json.Marshal(next)
	if err != nil {
		return nil, errors.Parse(err, "main", "loadConfig", "marshal config")
	}
	vd := hotreload.NewVersionData(next.Version, data)
	if vd.Version == "" {
		vd.Version = vd.Hash[:12]
	}
	return vd, nil
}

func (a *app) healthCheck() (bool, string) {
	status := a.monitor.AggregateHealth(appName)
	return !status.IsUnhealthy(), status.Status + ": " + status.Message
}

// shutdown stops the background tasks, drains the runner so queued batches
// still reach the sink, then closes the connection.
func (a *app) shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if a.stopBackground != nil {
		a.stopBackground()
		done := make(chan error, 1)
		go func() { done <- a.background.Wait() }()
		select {
		case err := <-done:
			if err != nil && !stderrors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, errors.WrapTransient(ctx.Err(), "main", "shutdown", "wait for background tasks"))
		}
	}

	if err := a.runner.Stop(timeout); err != nil {
		errs = append(errs, err)
	}
	if a.nats != nil {
		if err := a.nats.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return stderrors.Join(errs...)
}
