package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics bridges the Metrics interface onto the globally configured
// OpenTelemetry meter provider. Instruments are created on first use and
// reused afterwards.
type OTelMetrics struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTelMetrics constructs a collector bound to the boxoffice meter.
func NewOTelMetrics() *OTelMetrics {
	return &OTelMetrics{
		meter:      otel.Meter("boxoffice"),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// IncCounter adds value to the named counter.
func (m *OTelMetrics) IncCounter(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	counter, ok := m.counters[name]
	if !ok {
		created, err := m.meter.Float64Counter(name)
		if err != nil {
			m.mu.Unlock()
			return
		}
		counter = created
		m.counters[name] = counter
	}
	m.mu.Unlock()
	counter.Add(context.Background(), value, metric.WithAttributes(attrs(labels)...))
}

// ObserveHistogram records value in the named histogram.
func (m *OTelMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	histogram, ok := m.histograms[name]
	if !ok {
		created, err := m.meter.Float64Histogram(name)
		if err != nil {
			m.mu.Unlock()
			return
		}
		histogram = created
		m.histograms[name] = histogram
	}
	m.mu.Unlock()
	histogram.Record(context.Background(), value, metric.WithAttributes(attrs(labels)...))
}

// SetGauge records the latest value for the named gauge.
func (m *OTelMetrics) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	gauge, ok := m.gauges[name]
	if !ok {
		created, err := m.meter.Float64Gauge(name)
		if err != nil {
			m.mu.Unlock()
			return
		}
		gauge = created
		m.gauges[name] = gauge
	}
	m.mu.Unlock()
	gauge.Record(context.Background(), value, metric.WithAttributes(attrs(labels)...))
}

func attrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}
