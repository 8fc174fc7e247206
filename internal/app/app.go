// Package app wires the application together: configuration, logging, the
// document loader, the resolver, and the executor. It owns the lifecycle
// of one invocation from loaded document to printed plan or applied
// actions.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/vk/dotplan/internal/ctxlog"
	"github.com/vk/dotplan/internal/executor"
	"github.com/vk/dotplan/internal/loader"
	"github.com/vk/dotplan/internal/platform"
	"github.com/vk/dotplan/internal/resolver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	runner executor.Runner
}

// New is the constructor for the main application. Plan output goes to
// outW, logs to logW, so a piped plan stays machine-readable.
func New(outW, logW io.Writer, cfg *Config) *App {
	return &App{
		outW:   outW,
		logW:   logW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		runner: executor.ShellRunner{},
	}
}

// Run executes the configured command: load, version pre-check, detect,
// resolve, then show or apply.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	logger := a.logger.With("run_id", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run started.", "command", cfg.Command, "path", cfg.DocumentPath)

	doc, err := loader.Load(ctx, cfg.DocumentPath)
	if err != nil {
		return fmt.Errorf("failed to load build document: %w", err)
	}
	if err := loader.CheckVersion(ctx, doc, Version, cfg.Strict); err != nil {
		return err
	}

	descriptor := platform.Detect(cfg.Overrides)
	logger.Debug("Local environment detected.",
		"platform", descriptor.Platform, "distro", descriptor.Distro,
		"hostname", descriptor.Hostname, "arch", descriptor.Arch)

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("Home directory unavailable, '~' expansion disabled.", "error", err)
		home = ""
	}

	result, err := resolver.New(descriptor, home).Resolve(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to resolve build document: %w", err)
	}
	logger.Debug("Document resolved.", "actions", len(result.Actions), "warnings", len(result.Warnings))

	switch cfg.Command {
	case CommandShow:
		printPlan(a.outW, result)
		return nil
	case CommandInstall:
		exec := executor.New(a.runner, cfg.Clean)
		if err := exec.Install(ctx, result.Actions); err != nil {
			return fmt.Errorf("install failed: %w", err)
		}
	case CommandUninstall:
		exec := executor.New(a.runner, cfg.Clean)
		if err := exec.Uninstall(ctx, result.Actions); err != nil {
			return fmt.Errorf("uninstall failed: %w", err)
		}
	}

	logger.Info("Run finished.", "command", cfg.Command)
	return nil
}
