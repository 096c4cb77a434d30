// Package main implements the loquat command: a staged message pipeline fed
// either from a NATS subject or from stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Full-finger/Loquat-sub001/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "loquat"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cliCfg, shouldExit, err := initializeCLI(args, stdout, stderr)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	logger := setupLogger(stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting Loquat",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"pipeline", cfg.Pipeline.Name,
		"bridge", cfg.Bridge.Enabled)

	a, err := newApp(cfg, appDeps{
		configPath: cliCfg.ConfigPath,
		overrides:  cliOverrides(cliCfg),
		level:      level,
		logger:     logger,
		stdout:     stdout,
	})
	if err != nil {
		return err
	}

	return runWithSignalHandling(a, cliCfg, stdin)
}

// initializeCLI parses and validates flags. The boolean reports that the
// process should exit without running.
func initializeCLI(args []string, stdout, stderr io.Writer) (*CLIConfig, bool, error) {
	cliCfg, err := parseFlags(args, stderr)
	if err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil, true, nil
	}
	return cliCfg, false, nil
}

// initializeConfiguration loads defaults, the optional config file and
// LOQUAT_* overrides, then applies flag overrides on top.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	cliOverrides(cliCfg)(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// cliOverrides returns the flag values that win over any loaded config,
// including configs loaded later by a hot reload.
func cliOverrides(cliCfg *CLIConfig) func(*config.Config) {
	return func(cfg *config.Config) {
		if cliCfg.LogLevel != "" {
			cfg.Log.Level = cliCfg.LogLevel
		}
		if cliCfg.LogFormat != "" {
			cfg.Log.Format = cliCfg.LogFormat
		}
	}
}

// runWithSignalHandling runs until SIGINT/SIGTERM or, without a bridge,
// until stdin is exhausted, then shuts down within the configured timeout.
func runWithSignalHandling(a *app, cliCfg *CLIConfig, stdin io.Reader) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startErr := a.start(ctx, cliCfg.Watch)
	if startErr != nil {
		a.logger.Error("Startup failed", "error", startErr)
	}

	var runErr error
	if startErr == nil {
		if a.bridge != nil {
			a.logger.Info("Waiting for batches", "subject", a.cfg.Get().Bridge.InputSubject)
			<-ctx.Done()
		} else {
			runErr = pumpUntilDone(ctx, a, stdin)
		}
	}

	a.logger.Info("Shutting down", "timeout", cliCfg.ShutdownTimeout)
	if err := a.shutdown(cliCfg.ShutdownTimeout); err != nil {
		a.logger.Error("Shutdown incomplete", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if startErr != nil {
		return startErr
	}
	if runErr == nil {
		a.logger.Info("Loquat stopped")
	}
	return runErr
}

// pumpUntilDone feeds stdin to the runner. A signal ends the wait even while
// a read is blocked; the abandoned read ends with the process.
func pumpUntilDone(ctx context.Context, a *app, stdin io.Reader) error {
	type result struct {
		submitted int
		err       error
	}
	done := make(chan result, 1)
	go func() {
		n, err := pumpBatches(ctx, stdin, a.runner, a.logger)
		done <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		return nil
	case res := <-done:
		a.logger.Info("Input exhausted", "batches", res.submitted)
		if res.err != nil && ctx.Err() == nil {
			return res.err
		}
		return nil
	}
}
