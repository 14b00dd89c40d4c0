package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"barangay/internal/platform/config"
	"barangay/internal/platform/health"
	"barangay/internal/platform/httpserver"
	"barangay/internal/platform/logger"
	"barangay/internal/platform/tracer"
	httptransport "barangay/internal/transport/http"
	request "barangay/pkg/platform/middleware/request"
)

const (
	serviceName     = "barangay-verification"
	shutdownTimeout = 10 * time.Second
	poolStatsPeriod = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing barangay verification service",
		"addr", cfg.Addr,
		"postgres", cfg.DatabaseURL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"credential_validity_window", cfg.Credential.ValidityWindow,
		"credential_refresh_threshold", cfg.Credential.RefreshThreshold,
	)
	if cfg.UsingDevSecret() {
		log.Warn("ACTOR_TOKEN_SECRET not set, using the development secret")
	}

	shutdownTracing, err := tracer.InitProvider(ctx, cfg.TracingEndpoint, serviceName, health.Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("tracer shutdown failed", "error", err)
		}
	}()

	// The default registry already carries the Go and process collectors and
	// the in-memory tx runner's lock metrics.
	reg := prometheus.DefaultRegisterer

	app, err := buildApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.close()

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Tokens:    app.tokens,
		Metrics:   request.NewMetrics(reg),
		Public:    []httptransport.RouteRegistrar{app.health},
		Protected: []httptransport.RouteRegistrar{app.residents, app.credentials},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	app.worker.Start()
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.worker.Stop(stopCtx)
	})

	if app.redis != nil {
		g.Go(func() error {
			return app.redis.RunPoolStats(gctx, poolStatsPeriod)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
