package otelmetrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func newTestRecorder(opts ...Option) (*Recorder, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	opts = append([]Option{WithMeter(provider.Meter("test"))}, opts...)
	return New(opts...), reader
}

func TestRecorder_CountersSumWithAttributes(t *testing.T) {
	recorder, reader := newTestRecorder()
	tags := map[string]string{"status": "success", "operation": "run_cycle"}
	recorder.IncCounter(context.Background(), "order_notify.run_cycle.total", 1, tags)
	recorder.IncCounter(context.Background(), "order_notify.run_cycle.total", 2, tags)

	metrics := collect(t, reader)
	sum, ok := metrics["order_notify.run_cycle.total"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %#v", metrics)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Fatalf("expected one data point with value 3, got %#v", sum.DataPoints)
	}
	if value, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("status")); !ok || value.AsString() != "success" {
		t.Fatalf("expected status attribute, got %v", sum.DataPoints[0].Attributes)
	}
}

func TestRecorder_HistogramRecords(t *testing.T) {
	recorder, reader := newTestRecorder(WithPrefix("svc."))
	recorder.ObserveHistogram(context.Background(), "send.duration_ms", 12, nil)
	recorder.ObserveHistogram(context.Background(), "send.duration_ms", 8, nil)

	metrics := collect(t, reader)
	histogram, ok := metrics["svc.send.duration_ms"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected prefixed float histogram, got %#v", metrics)
	}
	if len(histogram.DataPoints) != 1 || histogram.DataPoints[0].Count != 2 || histogram.DataPoints[0].Sum != 20 {
		t.Fatalf("unexpected histogram points %#v", histogram.DataPoints)
	}
}

func TestRecorder_IgnoresBlankNames(t *testing.T) {
	recorder, reader := newTestRecorder()
	recorder.IncCounter(context.Background(), "  ", 1, nil)
	recorder.ObserveHistogram(context.Background(), "", 1, nil)
	if metrics := collect(t, reader); len(metrics) != 0 {
		t.Fatalf("expected no instruments, got %#v", metrics)
	}
}
