package otelmetrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/goliatone/go-order-notify"

type Option func(*Recorder)

func WithMeter(meter metric.Meter) Option {
	return func(r *Recorder) {
		if meter != nil {
			r.meter = meter
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPrefix namespaces every instrument, e.g. "order_notify".
func WithPrefix(prefix string) Option {
	return func(r *Recorder) {
		r.prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	}
}

// Recorder maps counter and histogram calls onto OpenTelemetry instruments.
// Instruments are created on first use and cached by name.
type Recorder struct {
	meter  metric.Meter
	logger glog.Logger
	prefix string

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// New uses the global meter provider unless WithMeter is given.
func New(opts ...Option) *Recorder {
	recorder := &Recorder{
		meter:      otel.Meter(instrumentationName),
		logger:     glog.Nop(),
		counters:   map[string]metric.Int64Counter{},
		histograms: map[string]metric.Float64Histogram{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *Recorder) IncCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	counter, ok := r.counter(name)
	if !ok {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attributes(tags)...))
}

func (r *Recorder) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	histogram, ok := r.histogram(name)
	if !ok {
		return
	}
	histogram.Record(ctx, value, metric.WithAttributes(attributes(tags)...))
}

func (r *Recorder) counter(name string) (metric.Int64Counter, bool) {
	name = r.instrumentName(name)
	if name == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if counter, ok := r.counters[name]; ok {
		return counter, true
	}
	counter, err := r.meter.Int64Counter(name)
	if err != nil {
		r.logger.Warn("metric counter unavailable", "name", name, "error", err.Error())
		return nil, false
	}
	r.counters[name] = counter
	return counter, true
}

func (r *Recorder) histogram(name string) (metric.Float64Histogram, bool) {
	name = r.instrumentName(name)
	if name == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if histogram, ok := r.histograms[name]; ok {
		return histogram, true
	}
	histogram, err := r.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		r.logger.Warn("metric histogram unavailable", "name", name, "error", err.Error())
		return nil, false
	}
	r.histograms[name] = histogram
	return histogram, true
}

func (r *Recorder) instrumentName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if r.prefix == "" {
		return name
	}
	return r.prefix + "." + name
}

func attributes(tags map[string]string) []attribute.KeyValue {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, attribute.String(key, tags[key]))
	}
	return attrs
}
