// Package metrics implements the Metric Filter (§4.J): a category-based
// inclusion decorator wrapping a concrete MetricSink so that every component
// (graph, event buffer, reader, shard router) can unconditionally emit
// metrics without knowing which categories an operator has chosen to
// collect. Grounded on the teacher's
// internal/infrastructure/observability/metrics.go Collector, restructured
// from a single fixed metric list into an interface any sink can implement,
// per the supplement in SPEC_FULL.md §4.J.
package metrics

import (
	"sync"
	"time"
)

// Category is a closed set of metric categories. Assignability between
// categories is modeled as a parent/child map rather than inheritance, per
// the SPEC_FULL.md §4.J redesign note.
type Category string

const (
	CategoryGraph       Category = "graph"
	CategoryEventBuffer  Category = "eventbuffer"
	CategoryReader       Category = "reader"
	CategoryShardRouter  Category = "shardrouter"
	CategoryHTTP         Category = "http"
)

// parents maps a category to the categories it is a member of for
// inclusion purposes: a metric passes a filter when its own category or any
// category it is a member of is enabled, so a filter that enables "graph"
// also admits any categories nested under it in the future.
var parents = map[Category][]Category{}

// IntervalID identifies an in-flight interval metric (Begin/End pair).
// sentinelID is returned by Begin when the category is filtered out, so End
// and CancelBegin can recognize and no-op on it without tracking filter
// state themselves.
type IntervalID int64

const sentinelID IntervalID = -1

// Sink is the concrete metric backend the Filter wraps. Implementations
// (e.g. the Prometheus sink in this package) need not check category
// enablement themselves; the Filter only calls through for enabled
// categories.
type Sink interface {
	IncrementCounter(category Category, name string, tags map[string]string)
	SetGauge(category Category, name string, value float64, tags map[string]string)
	RecordDuration(category Category, name string, d time.Duration, tags map[string]string)
}

// Filter decorates a Sink, dropping calls for categories not in its
// enabled set. Interval metrics (Begin/End) return a sentinel ID for
// filtered-out categories so End/CancelBegin can cheaply recognize and skip
// them.
type Filter struct {
	sink    Sink
	enabled map[Category]struct{}

	mu      sync.Mutex
	nextID  int64
	pending map[IntervalID]pendingInterval
}

type pendingInterval struct {
	category Category
	name     string
	tags     map[string]string
	start    time.Time
}

// NewFilter builds a Filter over sink, enabling exactly the given
// categories (plus, at check time, any category nested under one of them
// via the parents map).
func NewFilter(sink Sink, enabled ...Category) *Filter {
	f := &Filter{
		sink:    sink,
		enabled: make(map[Category]struct{}, len(enabled)),
		pending: make(map[IntervalID]pendingInterval),
	}
	for _, c := range enabled {
		f.enable(c)
	}
	return f
}

func (f *Filter) enable(c Category) {
	f.enabled[c] = struct{}{}
}

func (f *Filter) isEnabled(c Category) bool {
	if _, ok := f.enabled[c]; ok {
		return true
	}
	for _, p := range parents[c] {
		if f.isEnabled(p) {
			return true
		}
	}
	return false
}

// IncrementCounter forwards to the underlying sink if category is enabled.
func (f *Filter) IncrementCounter(category Category, name string, tags map[string]string) {
	if !f.isEnabled(category) {
		return
	}
	f.sink.IncrementCounter(category, name, tags)
}

// SetGauge forwards to the underlying sink if category is enabled.
func (f *Filter) SetGauge(category Category, name string, value float64, tags map[string]string) {
	if !f.isEnabled(category) {
		return
	}
	f.sink.SetGauge(category, name, value, tags)
}

// RecordDuration forwards to the underlying sink if category is enabled.
func (f *Filter) RecordDuration(category Category, name string, d time.Duration, tags map[string]string) {
	if !f.isEnabled(category) {
		return
	}
	f.sink.RecordDuration(category, name, d, tags)
}

// Begin starts an interval metric, returning an IntervalID to pass to End.
// Returns the sentinel ID without allocating bookkeeping state when
// category is filtered out.
func (f *Filter) Begin(category Category, name string, tags map[string]string) IntervalID {
	if !f.isEnabled(category) {
		return sentinelID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := IntervalID(f.nextID)
	f.pending[id] = pendingInterval{category: category, name: name, tags: tags, start: time.Now()}
	return id
}

// End completes an interval metric started with Begin, recording its
// duration. A sentinel ID is a no-op.
func (f *Filter) End(id IntervalID) {
	if id == sentinelID {
		return
	}
	f.mu.Lock()
	p, ok := f.pending[id]
	if ok {
		delete(f.pending, id)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	f.sink.RecordDuration(p.category, p.name, time.Since(p.start), p.tags)
}

// CancelBegin discards an in-flight interval metric without recording a
// duration, e.g. when the operation it was timing failed before
// completing meaningfully. A sentinel ID is a no-op.
func (f *Filter) CancelBegin(id IntervalID) {
	if id == sentinelID {
		return
	}
	f.mu.Lock()
	delete(f.pending, id)
	f.mu.Unlock()
}
