// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Foxius/wither-pass/internal/config"
	"github.com/Foxius/wither-pass/internal/control"
	"github.com/Foxius/wither-pass/internal/hook"
	"github.com/Foxius/wither-pass/internal/logging"
	"github.com/Foxius/wither-pass/internal/modhost"
	"github.com/Foxius/wither-pass/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Activate configured hooks and keep rechecking missing modules",
		Long: `Run loads the configured hooks, activates those whose module is ready
and rechecks the rest until they appear or their attempt budget runs out.
It serves metrics and health probes until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHooks(cmd.Context(), cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runHooks runs until ctx is cancelled or the process is signalled.
func runHooks(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return oops.Wrap(err)
	}
	disabled, err := cfg.DisabledSet()
	if err != nil {
		return oops.Wrap(err)
	}

	logger := logging.SetDefault(logging.Options{
		Service: "witherpass",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	logger.Info("starting hook runner",
		"modules_dir", cfg.ModulesDir,
		"recheck_interval", cfg.RecheckInterval,
		"max_attempts", cfg.MaxAttempts,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer *observability.Server
	var metrics *hook.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, ready.Load)
		metrics = hook.NewMetrics(obsServer.Registerer())
	}

	loop := hook.NewLoop(hook.WithJitterPercent(cfg.RetryJitterPercent))
	defer loop.Close()

	hooksLogger := logger.With("component", "hooks")
	scheduler := hook.NewScheduler(loop,
		hook.WithInterval(cfg.RecheckInterval),
		hook.WithMaxAttempts(cfg.MaxAttempts),
		hook.WithLogger(hooksLogger),
		hook.WithMetrics(metrics),
	)
	host := modhost.NewDirectory(cfg.ModulesDir, modhost.WithLogger(logger.With("component", "modhost")))
	registry := hook.NewRegistry(host, newLogRegistrar(hooksLogger), disabled, scheduler,
		hook.WithHostHookName(cfg.HostHook),
		hook.WithRegistryLogger(hooksLogger),
	)
	defer registry.Close()

	if obsServer != nil {
		obsServer.SetSnapshot(registry.Snapshot)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("addr", cfg.MetricsAddr).Wrapf(err, "failed to start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	var healthServer *control.HealthServer
	if cfg.ControlAddr != "" {
		healthServer = control.NewHealthServer()
		healthErrChan, err := healthServer.Start(cfg.ControlAddr)
		if err != nil {
			stopObservability(logger, obsServer)
			return oops.With("addr", cfg.ControlAddr).Wrapf(err, "failed to start health server")
		}
		go monitorServerErrors(ctx, cancel, healthErrChan, "health")
		logger.Info("health server started", "addr", healthServer.Addr())
	}

	if err := registry.Install(ctx, builtins()...); err != nil {
		return oops.Wrapf(err, "failed to install built-in listeners")
	}
	declareHooks(ctx, registry, cfg.Hooks)
	registry.ActivateOnHostReady(ctx, hook.ListenerInstaller(func() hook.Listener { return hostListener{} }))
	host.SetHostEnabled(true)
	ready.Store(true)
	if healthServer != nil {
		healthServer.SetServing(true)
	}

	cmd.Println("Hook runner started")
	logger.Info("hook runner ready",
		"active", registry.ListActiveHooks(),
		"disabled", registry.ListDisabledHooks(),
	)

	<-ctx.Done()
	logger.Info("shutting down...")
	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if healthServer != nil {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping health server", "error", err)
		}
	}
	stopObservability(logger, obsServer)

	logger.Info("shutdown complete", "active", registry.ListActiveHooks())
	return nil
}

// stopObservability stops s if it was started.
func stopObservability(logger *slog.Logger, s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It
// exits when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
