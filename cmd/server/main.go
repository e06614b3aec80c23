// Package main runs the todo service: it loads configuration for the profile
// in APP_PROFILE, wires the dependency graph and serves HTTP until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/todo-service/internal/adapters/http"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/logging"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	drainTimeout = 15 * time.Second
	flushTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := os.Getenv("APP_PROFILE")
	if profile == "" {
		return errors.New("APP_PROFILE must name a config profile such as local or prod")
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := startTelemetry(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer providers.flush(logger)

	injector := newInjector(ctx, cfg, logger, providers.metrics)
	defer shutdown(injector, logger)

	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("wiring server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
}

// shutdown stops the server before the storage it reads from; the injector
// orders the graph by its dependencies.
func shutdown(injector *do.RootScope, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if report := injector.ShutdownWithContext(ctx); !report.Succeed {
		logger.Error("shutdown incomplete", slog.String("error", report.Error()))
		return
	}
	logger.Info("shutdown complete")
}

// otelProviders holds the SDK providers. Both are nil when telemetry is off,
// and so is metrics.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

func startTelemetry(ctx context.Context, cfg *config.TelemetryConfig) (*otelProviders, error) {
	if !cfg.Enabled {
		return &otelProviders{}, nil
	}

	p := &otelProviders{}
	var err error
	if p.tracer, err = telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Exporter, cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	if p.meter, err = telemetry.InitMeter(ctx, cfg.ServiceName, cfg.Exporter, cfg.Endpoint); err != nil {
		_ = p.tracer.Shutdown(ctx)
		return nil, fmt.Errorf("meter: %w", err)
	}
	if p.metrics, err = telemetry.NewMetrics(p.meter, cfg.ServiceName); err != nil {
		_ = p.tracer.Shutdown(ctx)
		_ = p.meter.Shutdown(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return p, nil
}

// flush exports whatever the providers still buffer.
func (p *otelProviders) flush(logger *slog.Logger) {
	if p.tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := errors.Join(p.tracer.Shutdown(ctx), p.meter.Shutdown(ctx)); err != nil {
		logger.Error("telemetry flush failed", slog.Any("error", err))
	}
}
