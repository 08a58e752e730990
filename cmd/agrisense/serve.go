package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-agrisense/infrastructure/httpapi"
	"github.com/ahrav/go-agrisense/infrastructure/middleware"
)

const readHeaderTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the advisory JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	svc, err := newService(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	cfg := svc.cfg
	if cfg.SeedFile != "" {
		if _, err := svc.seed(ctx, cfg.SeedFile); err != nil {
			return err
		}
	}

	metricsHandler := promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{})

	routerOpts := httpapi.Options{Logger: svc.logger}
	if cfg.Server.RateLimit.RPS > 0 {
		routerOpts.Limiter = middleware.NewCallerLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}
	if cfg.Server.MetricsAddr == "" {
		routerOpts.Metrics = metricsHandler
	}

	servers := []*http.Server{{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(svc.advisor, routerOpts),
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			svc.logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		svc.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.shutdownTimeout())
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
