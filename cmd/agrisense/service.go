package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ahrav/go-agrisense/infrastructure/middleware"
	"github.com/ahrav/go-agrisense/infrastructure/store/memory"
	"github.com/ahrav/go-agrisense/infrastructure/store/sqlstore"
	"github.com/ahrav/go-agrisense/infrastructure/telemetry"
	"github.com/ahrav/go-agrisense/internal/application"
	"github.com/ahrav/go-agrisense/internal/ports"
)

const defaultShutdownTimeout = 5 * time.Second

// service is the wired process: configuration, logging, tracing, the store
// and the advisor over it.
type service struct {
	cfg      application.Config
	logger   *zap.Logger
	store    ports.Store
	registry *prometheus.Registry
	advisor  *application.Advisor

	shutdownTracing func(context.Context) error
}

func loadConfig(ctx context.Context, opts *rootOptions) (application.Config, error) {
	var cfg application.Config
	loader, err := application.NewFileConfigLoader(opts.configPath, opts.envFile)
	if err != nil {
		return cfg, err
	}
	if err := loader.Load(ctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newService loads configuration and builds every component the commands
// share. The admin named by the config is bootstrapped before returning.
func newService(ctx context.Context, opts *rootOptions) (*service, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	shutdownTracing, err := telemetry.InitTracing(telemetry.TracingOptions{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	svc := &service{cfg: cfg, logger: logger, shutdownTracing: shutdownTracing}

	store, err := openStore(cfg.Store)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.store = store

	svc.registry = prometheus.NewRegistry()
	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewPrometheusMetrics(svc.registry)

	advisor, err := application.NewAdvisor(store,
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithObserver(middleware.NewOTelObserver(metrics)),
	)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("create advisor: %w", err)
	}
	svc.advisor = advisor

	admin, err := advisor.Bootstrap(ctx, cfg.AdminID)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if admin != cfg.AdminID {
		logger.Warn("configured admin ignored, store already has an admin",
			zap.String("configured", cfg.AdminID),
			zap.String("admin", admin))
	}

	logger.Info("service ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("admin", admin),
		zap.String("version", version))
	return svc, nil
}

func openStore(cfg application.StoreConfig) (ports.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		store, err := sqlstore.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// seed applies path through a SeedLoader and logs what it created.
func (svc *service) seed(ctx context.Context, path string) (application.SeedReport, error) {
	loader, err := application.NewSeedLoader(svc.advisor)
	if err != nil {
		return application.SeedReport{}, err
	}
	report, err := loader.LoadFromFile(ctx, path)
	if err != nil {
		return report, fmt.Errorf("apply seed %s: %w", path, err)
	}
	svc.logger.Info("seed applied",
		zap.String("file", path),
		zap.Int("terms", report.Terms),
		zap.Int("experts", report.Experts),
		zap.Int("templates", report.Templates),
		zap.Int("farms", report.Farms))
	return report, nil
}

func (svc *service) shutdownTimeout() time.Duration {
	if svc.cfg.Server.ShutdownTimeout > 0 {
		return svc.cfg.Server.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

// Close releases the store and flushes tracing and logs.
func (svc *service) Close() error {
	var errs []error
	if svc.store != nil {
		errs = append(errs, svc.store.Close())
	}
	if svc.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), svc.shutdownTimeout())
		errs = append(errs, svc.shutdownTracing(ctx))
		cancel()
	}
	_ = svc.logger.Sync()
	return errors.Join(errs...)
}
