// dnsshift keeps DNS A records pointed at a day address or a night address
// according to a daily schedule. It reconciles the declared domains, and
// optionally every record in their zones that points at either address, on a
// fixed interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	// Embedded zone database so timezone names resolve in minimal images.
	_ "time/tzdata"

	"gitlab.bluewillows.net/root/dnsshift/internal/config"
	"gitlab.bluewillows.net/root/dnsshift/internal/health"
	"gitlab.bluewillows.net/root/dnsshift/internal/metrics"
	"gitlab.bluewillows.net/root/dnsshift/internal/reconciler"
	"gitlab.bluewillows.net/root/dnsshift/internal/runner"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
	"gitlab.bluewillows.net/root/dnsshift/providers/cloudflare"
	"gitlab.bluewillows.net/root/dnsshift/providers/rfc2136"
	"gitlab.bluewillows.net/root/dnsshift/providers/technitium"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.ResolvePath(os.Args[1:]))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("dnsshift starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.String("config", cfg.Path),
		slog.Bool("dry_run", cfg.DryRun),
		slog.Bool("auto_discovery", cfg.AutoDiscovery),
	)

	registry := provider.NewRegistry(logger)
	registerProviderFactories(registry, logger)

	if err := config.ValidateProviderType(cfg.Provider.Type, registry.Types()); err != nil {
		return err
	}
	dnsProvider, err := registry.CreateInstance(cfg.Provider.Type, cfg.Provider.Type, cfg.Provider.Settings)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	rec := reconciler.New(dnsProvider,
		reconciler.WithConfig(reconcilerConfig(cfg)),
		reconciler.WithLogger(logger),
	)

	loop := runner.New(rec,
		runner.WithInterval(cfg.CheckInterval),
		runner.WithErrorBackoff(cfg.ErrorBackoff),
		runner.WithLogger(logger),
	)

	var healthServer *health.Server
	if cfg.HealthPort > 0 {
		healthServer = health.New(cfg.HealthPort, health.WithLogger(logger))
		healthServer.RegisterChecker("provider:"+dnsProvider.Name(), dnsProvider.Ping)
		healthServer.WatchPasses(loop)

		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
	}

	policy := cfg.Policy()
	logger.Info("dnsshift initialized",
		slog.String("provider", dnsProvider.Type()),
		slog.Int("domains", len(cfg.Domains)),
		slog.Int("day_start_hour", policy.DayStartHour),
		slog.Int("day_end_hour", policy.DayEndHour),
		slog.String("day_ip", policy.DayIP),
		slog.String("night_ip", policy.NightIP),
		slog.String("timezone", cfg.Location().String()),
		slog.Duration("check_interval", cfg.CheckInterval),
		slog.Int("health_port", cfg.HealthPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := loop.Run(ctx)
	logger.Info("shutting down...")

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", slog.String("error", err.Error()))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("running reconciliation loop: %w", runErr)
	}

	logger.Info("dnsshift shutdown complete")
	return nil
}

func registerProviderFactories(registry *provider.Registry, logger *slog.Logger) {
	// Public DNS
	registry.RegisterFactory("cloudflare", cloudflare.Factory(cloudflare.WithProviderLogger(logger)))

	// Any authoritative server accepting dynamic updates
	registry.RegisterFactory("rfc2136", rfc2136.Factory(rfc2136.WithProviderLogger(logger)))

	// Self-hosted Technitium DNS Server
	registry.RegisterFactory("technitium", technitium.Factory(technitium.WithProviderLogger(logger)))
}

func reconcilerConfig(cfg *config.Config) reconciler.Config {
	domains := make([]reconciler.Domain, 0, len(cfg.Domains))
	for _, d := range cfg.Domains {
		domains = append(domains, reconciler.Domain{Name: d.Name, Zone: d.Zone})
	}

	return reconciler.Config{
		Policy:        cfg.Policy(),
		Domains:       domains,
		AutoDiscovery: cfg.AutoDiscovery,
		DryRun:        cfg.DryRun,
		TTL:           cfg.TTL,
		Workers:       cfg.Workers,
	}
}

// setupLogger builds the process logger. When a log file is configured,
// output goes to stdout and the file. An unopenable file is reported and
// logging continues on stdout alone.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	var fileErr error
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fileErr = err
		} else {
			out = io.MultiWriter(os.Stdout, f)
			closeFn = func() { _ = f.Close() }
		}
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	if fileErr != nil {
		logger.Warn("cannot open log file, logging to stdout only",
			slog.String("file", cfg.File),
			slog.String("error", fileErr.Error()),
		)
	}

	return logger, closeFn
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
