package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "transcribing", 250*time.Millisecond)
	m.RecordStage(ctx, "transcribing", 750*time.Millisecond)

	got := findMetric(collect(t, reader), "voice.stage.duration")
	if got == nil {
		t.Fatal("voice.stage.duration not found")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", got.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points: got %d, want 1", len(hist.DataPoints))
	}
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("count: got %d, want 2", hist.DataPoints[0].Count)
	}
	if hist.DataPoints[0].Sum != 1.0 {
		t.Errorf("sum: got %v, want 1.0", hist.DataPoints[0].Sum)
	}
}

func TestRecordTurnAndErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "ok")
	m.RecordTurn(ctx, "failed")
	m.RecordStageError(ctx, "synthesizing", "service error")

	rm := collect(t, reader)

	turns := findMetric(rm, "voice.turns")
	if turns == nil {
		t.Fatal("voice.turns not found")
	}
	sum, ok := turns.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", turns.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("turn data points: got %d, want 2", len(sum.DataPoints))
	}

	if findMetric(rm, "voice.stage.errors") == nil {
		t.Error("voice.stage.errors not found")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordStage(context.Background(), "capturing", time.Second)
	m.RecordTurn(context.Background(), "ok")
	m.RecordStageError(context.Background(), "playing", "playback error")
}
