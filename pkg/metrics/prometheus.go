package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink is the concrete Sink implementation the Metric Filter
// wraps in production, grounded on the teacher's
// internal/infrastructure/observability/metrics.go Collector: one registry,
// one CounterVec/HistogramVec pair per metric family, looked up by name at
// call time rather than by dedicated struct fields, since this sink must
// serve arbitrary category/name combinations rather than a fixed list.
type PrometheusSink struct {
	registry *prometheus.Registry
	ns       string

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusSink creates a sink registered under namespace.
func NewPrometheusSink(namespace string) *PrometheusSink {
	return &PrometheusSink{
		registry:   prometheus.NewRegistry(),
		ns:         namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying Prometheus registry for wiring into an
// HTTP /metrics handler.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

func tagNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags)+1)
	names = append(names, "category")
	for k := range tags {
		names = append(names, k)
	}
	return names
}

func tagValues(category Category, tags map[string]string, names []string) prometheus.Labels {
	labels := prometheus.Labels{"category": string(category)}
	for k, v := range tags {
		labels[k] = v
	}
	_ = names
	return labels
}

func (s *PrometheusSink) counterFor(category Category, name string, tags map[string]string) prometheus.Counter {
	vec, ok := s.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.ns,
			Name:      name + "_total",
			Help:      "Counter metric " + name,
		}, tagNames(tags))
		s.registry.MustRegister(vec)
		s.counters[name] = vec
	}
	return vec.With(tagValues(category, tags, nil))
}

func (s *PrometheusSink) gaugeFor(category Category, name string, tags map[string]string) prometheus.Gauge {
	vec, ok := s.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.ns,
			Name:      name,
			Help:      "Gauge metric " + name,
		}, tagNames(tags))
		s.registry.MustRegister(vec)
		s.gauges[name] = vec
	}
	return vec.With(tagValues(category, tags, nil))
}

func (s *PrometheusSink) histogramFor(category Category, name string, tags map[string]string) prometheus.Observer {
	vec, ok := s.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.ns,
			Name:      name + "_seconds",
			Help:      "Duration metric " + name,
			Buckets:   prometheus.DefBuckets,
		}, tagNames(tags))
		s.registry.MustRegister(vec)
		s.histograms[name] = vec
	}
	return vec.With(tagValues(category, tags, nil))
}

// IncrementCounter implements Sink.
func (s *PrometheusSink) IncrementCounter(category Category, name string, tags map[string]string) {
	s.counterFor(category, name, tags).Inc()
}

// SetGauge implements Sink.
func (s *PrometheusSink) SetGauge(category Category, name string, value float64, tags map[string]string) {
	s.gaugeFor(category, name, tags).Set(value)
}

// RecordDuration implements Sink.
func (s *PrometheusSink) RecordDuration(category Category, name string, d time.Duration, tags map[string]string) {
	s.histogramFor(category, name, tags).Observe(d.Seconds())
}
