package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/maximewewer/timerfd-exporter/internal/binding"
	"github.com/maximewewer/timerfd-exporter/internal/collector"
	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/internal/probe"
	"github.com/maximewewer/timerfd-exporter/internal/refclock"
	"github.com/maximewewer/timerfd-exporter/internal/server"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
)

var (
	// Build information
	version = "dev"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println("timerfd-exporter version", version)
		os.Exit(0)
	}

	// Logger is not initialized yet
	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		Component:  "timerfd-exporter",
		EnableFile: cfg.Logging.EnableFile,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}

	logger.Startup(version, cfg)

	registry := metrics.NewRegistryWithConfig(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	if err := registry.Register(); err != nil {
		logger.Fatal("main", "Failed to register metrics", err)
	}
	m := registry.GetMetrics()
	m.ExporterBuildInfo.WithLabelValues(version, runtime.Version()).Set(1)

	a, err := newApp(cfg, m)
	if err != nil {
		logger.Fatal("main", "Failed to start", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(cfg, registry.GetRegistry(), m, a.serverOptions()...)
	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start(ctx)
	}()

	collectorErrChan := make(chan error, 1)
	go func() {
		collectorErrChan <- runCollectionLoop(ctx, cfg.Probe.CollectInterval, a.collectors)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	reason := "signal"
	select {
	case sig := <-sigChan:
		logger.SafeInfo("main", "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErrChan:
		reason = "server error"
		if err != nil {
			logger.Errorf("main", err, "Server on %s:%d failed", cfg.Server.Address, cfg.Server.Port)
		}
	case err := <-collectorErrChan:
		reason = "collector error"
		if err != nil {
			logger.Error("main", "Collector error", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "Server shutdown error", err)
	}
	a.stop()

	logger.Shutdown(reason)
}

// app holds the long-lived components wired from configuration
type app struct {
	probes     *probe.Manager
	table      *binding.Table
	checker    *refclock.Checker
	collectors *collector.Registry
}

// newApp builds and starts the probes, the binding table and the reference checker
func newApp(cfg *config.Config, m *metrics.TimerMetrics) (*app, error) {
	a := &app{collectors: collector.NewRegistry()}

	kernel := refclock.NewKernelReader(runtime.GOOS == "linux")

	var querier refclock.Querier
	if cfg.Reference.Enabled {
		cb := refclock.NewCircuitBreakerConfigWithThreshold(
			cfg.Reference.CircuitBreaker.MaxRequests,
			cfg.Reference.CircuitBreaker.Interval,
			cfg.Reference.CircuitBreaker.Timeout,
			cfg.Reference.CircuitBreaker.FailureThreshold,
		)
		cb.OnStateChange = refclock.CircuitStateHook(m)
		querier = refclock.NewCircuitBreakerClient(
			refclock.NewClient(cfg.Reference.Timeout, cfg.Reference.Version, cfg.Reference.MinInterval),
			cb,
		)
	}
	a.checker = refclock.NewChecker(querier, cfg.Reference.Server, kernel, m)

	if cfg.Probe.Enabled {
		mgr, err := probe.NewManager(cfg.Probe.Clocks, cfg.Probe.Interval, cfg.Probe.CancelOnSet, m,
			probe.WithClockChangeHook(a.checker.OnClockChange))
		if err != nil {
			a.checker.Close()
			return nil, err
		}
		if err := mgr.Start(); err != nil {
			a.checker.Close()
			return nil, err
		}
		a.probes = mgr
		a.collectors.Register(collector.NewTimerCollector(mgr, collector.NewCommonCollector(m, "timer", true)))
	}

	if cfg.API.Enabled {
		a.table = binding.NewTable(cfg.API.MaxTimers, binding.WithObserver(m.ObserveOperation))
		a.collectors.Register(collector.NewBindingCollector(a.table, collector.NewCommonCollector(m, "binding", true)))
	}

	a.collectors.Register(collector.NewKernelCollector(kernel, collector.NewCommonCollector(m, "kernel", true)))
	a.collectors.Register(collector.NewRuntimeCollector(collector.NewCommonCollector(m, "runtime", true)))

	logger.SafeInfo("main", "Registered collectors", map[string]interface{}{
		"collectors": a.collectors.Names(),
		"total":      a.collectors.Count(),
		"enabled":    a.collectors.EnabledCount(),
		"probes":     cfg.Probe.Enabled,
		"api":        cfg.API.Enabled,
		"reference":  cfg.Reference.Enabled,
	})

	return a, nil
}

func (a *app) serverOptions() []server.Option {
	var opts []server.Option
	if a.probes != nil {
		opts = append(opts, server.WithProbes(a.probes))
	}
	if a.table != nil {
		opts = append(opts, server.WithBindingTable(a.table))
	}
	return opts
}

// stop releases every timer the app owns
func (a *app) stop() {
	if a.probes != nil {
		a.probes.Stop()
	}
	a.checker.Close()
	if a.table != nil {
		a.table.CloseAll()
	}
}

// loadConfig loads configuration based on whether a config file is specified
func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		// Priority: Environment Variables > YAML File > Defaults
		return config.LoadFromYamlWithEnvOverrides(configFile)
	}
	// Priority: Environment Variables > Defaults
	return config.LoadFromEnvVarsOnly()
}

// runCollectionLoop collects once, then on every interval until ctx is done
func runCollectionLoop(ctx context.Context, interval time.Duration, collectors *collector.Registry) error {
	if err := collectors.CollectAll(ctx); err != nil {
		logger.Warnf("main", "Initial collection failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.SafeInfo("main", "Collection loop started", map[string]interface{}{
		"interval": interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			logger.Info("main", "Collection loop stopped")
			return nil
		case <-ticker.C:
			if err := collectors.CollectAll(ctx); err != nil {
				logger.Warnf("main", "Collection failed: %v", err)
			}
		}
	}
}
