package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
)

const (
	serviceName = "vision-bridge"
	version     = "1.0.0"
)

func newMeterProvider(ctx context.Context, w io.Writer, cfg *Config) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// ProvideMeterProvider exports metrics periodically to stdout, or to a
// rotated file when METRICS_FILE is set.
func ProvideMeterProvider(lc fx.Lifecycle, cfg *Config) (metric.MeterProvider, error) {
	var w io.Writer = os.Stdout
	if cfg.MetricsFile != "" {
		file := rotatingFile(cfg.MetricsFile)
		w = file
		lc.Append(fx.StopHook(file.Close))
	}

	mp, err := newMeterProvider(context.Background(), w, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})

	return mp, nil
}

var TelemetryModule = fx.Options(
	fx.Provide(ProvideMeterProvider),
)
