package bridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/eleven-am/vision-bridge/internal/bridge"

type metrics struct {
	ticks        metric.Int64Counter
	skipped      metric.Int64Counter
	observations metric.Int64Counter
	pushes       metric.Int64Counter
	pushFailures metric.Int64Counter
	failures     metric.Int64Counter
	latency      metric.Float64Histogram
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	var m metrics
	var err error

	if m.ticks, err = meter.Int64Counter("bridge.ticks",
		metric.WithDescription("Ticks that captured a frame and called the analyzer")); err != nil {
		return nil, err
	}
	if m.skipped, err = meter.Int64Counter("bridge.ticks.skipped",
		metric.WithDescription("Ticks dropped because an analysis was in flight")); err != nil {
		return nil, err
	}
	if m.observations, err = meter.Int64Counter("bridge.observations",
		metric.WithDescription("Non-sentinel observations returned by the analyzer")); err != nil {
		return nil, err
	}
	if m.pushes, err = meter.Int64Counter("bridge.pushes",
		metric.WithDescription("Observations forwarded to the voice session")); err != nil {
		return nil, err
	}
	if m.pushFailures, err = meter.Int64Counter("bridge.push_failures",
		metric.WithDescription("Failed context pushes")); err != nil {
		return nil, err
	}
	if m.failures, err = meter.Int64Counter("bridge.analysis_failures",
		metric.WithDescription("Analyzer failures by kind")); err != nil {
		return nil, err
	}
	if m.latency, err = meter.Float64Histogram("bridge.analysis.duration",
		metric.WithDescription("Analyzer call duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *metrics) recordFailure(ctx context.Context, kind string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
