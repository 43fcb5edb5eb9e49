// Package observe records pipeline metrics through the OpenTelemetry metrics
// API and optionally exposes them for Prometheus scraping.
package observe

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "voice-assistant"

// latencyBuckets are in seconds. Capture and playback stages run for whole
// seconds, service calls usually for fractions of one.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30,
}

// Metrics is nil-safe: every Record method is a no-op on a nil receiver, so
// callers that were built without metrics need no checks.
type Metrics struct {
	StageDuration metric.Float64Histogram
	Turns         metric.Int64Counter
	StageErrors   metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("voice.stage.duration",
		metric.WithDescription("Latency of one turn pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("voice.turns",
		metric.WithDescription("Completed turns by status."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("voice.stage.errors",
		metric.WithDescription("Stage failures by stage and error kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) RecordTurn(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordStageError(ctx context.Context, stage, kind string) {
	if m == nil {
		return
	}
	m.StageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("kind", kind),
	))
}

// InitPrometheus builds a MeterProvider backed by the Prometheus exporter.
// The returned handler serves the default registry.
func InitPrometheus() (*sdkmetric.MeterProvider, http.Handler, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return mp, promhttp.Handler(), nil
}
