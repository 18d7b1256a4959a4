// Package reader implements the Reader Node (§4.G): a replica Access
// Manager that periodically refreshes itself from the EventCache, falling
// back to a full persistent Load when the cache can no longer serve the
// reader's watermark. Grounded on the teacher's cache-then-fallback
// replication shape (fd166cc0 moolen-spectre internal/graph/cached_client.go)
// and the Access Manager's own trusted Load path for the fallback case.
package reader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
	"applicationaccess/pkg/metrics"
)

// AccessManager is the subset of domain/accessmanager.AccessManager the
// Reader Node depends on, kept narrow so tests can substitute a fake.
type AccessManager interface {
	Apply(e events.Event) error
}

// EventSource is implemented by the EventCache client the reader polls.
type EventSource interface {
	GetAllEventsSince(priorEventID string) ([]events.Event, error)
}

// PersistentReader is implemented by anything that can produce a full
// snapshot of events representing the current state, used when the cache
// can no longer serve the reader's watermark.
type PersistentReader interface {
	Load(ctx context.Context) ([]events.Event, string, error)
}

// Loadable is implemented by an Access Manager capable of a trusted bulk
// reconstruction from a snapshot.
type Loadable interface {
	AccessManager
	Load(snapshot []events.Event) error
}

// MetricsRecorder is the subset of metrics.Filter a Reader Node needs to
// report refresh outcomes (§4.J / §4.G step 2-4): a counter on each
// CacheEmpty/CacheMiss outcome, and a duration recording per applied
// event's processing delay.
type MetricsRecorder interface {
	IncrementCounter(category metrics.Category, name string, tags map[string]string)
	RecordDuration(category metrics.Category, name string, d time.Duration, tags map[string]string)
}

type nopMetricsRecorder struct{}

func (nopMetricsRecorder) IncrementCounter(metrics.Category, string, map[string]string)            {}
func (nopMetricsRecorder) RecordDuration(metrics.Category, string, time.Duration, map[string]string) {}

// Node is a Reader Node: an Access Manager replica plus a watermark
// tracking the last event it has applied.
type Node struct {
	mu              sync.RWMutex
	am              Loadable
	latestEventID   atomic.Value // string
	cache           EventSource
	persistentReader PersistentReader
	logger          *zap.Logger
	metrics         MetricsRecorder
	clock           func() time.Time
}

// Option configures a Node at construction time.
type Option func(*Node)

// WithMetrics wires a MetricsRecorder into the Node. The zero value records
// nothing, so production code that forgets to wire a sink fails silently
// rather than panicking on a nil receiver.
func WithMetrics(m MetricsRecorder) Option { return func(n *Node) { n.metrics = m } }

// WithClock overrides the Node's time source, for deterministic tests of
// processing-delay measurement.
func WithClock(c func() time.Time) Option { return func(n *Node) { n.clock = c } }

// New constructs a Reader Node over am, starting with an empty watermark.
func New(am Loadable, cache EventSource, persistentReader PersistentReader, logger *zap.Logger, opts ...Option) *Node {
	n := &Node{
		am:               am,
		cache:            cache,
		persistentReader: persistentReader,
		logger:           logger,
		metrics:          nopMetricsRecorder{},
		clock:            time.Now,
	}
	n.latestEventID.Store("")
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AccessManager returns the current replica for queries. Safe to call
// concurrently with Refresh: Refresh only ever appends/replaces state on
// the same instance, it never swaps the pointer out from under callers.
func (n *Node) AccessManager() Loadable {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.am
}

func (n *Node) watermark() string {
	return n.latestEventID.Load().(string)
}

// Refresh pulls events newer than the reader's watermark from the cache and
// applies them in order. State machine per §4.G:
//   - CacheEmpty is swallowed: nothing has ever been written yet, not an
//     error condition for the reader.
//   - EventNotCached triggers a full Load() from the persistent reader,
//     replaying the snapshot onto the same replica instance (its existing
//     state is not cleared first) and resetting the watermark to the
//     snapshot's high-water mark.
//   - On success, applied events advance the watermark to the last
//     applied event's ID.
func (n *Node) Refresh(ctx context.Context) error {
	watermark := n.watermark()

	batch, err := n.cache.GetAllEventsSince(watermark)
	if err != nil {
		if accesserrors.Is(err, accesserrors.KindCacheEmpty) {
			n.metrics.IncrementCounter(metrics.CategoryReader, "cache_empty", nil)
			return nil
		}
		if accesserrors.Is(err, accesserrors.KindEventNotCached) {
			n.metrics.IncrementCounter(metrics.CategoryReader, "cache_miss", nil)
			return n.reload(ctx)
		}
		return accesserrors.ReaderRefreshFailed(err.Error())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range batch {
		if err := n.am.Apply(e); err != nil {
			n.logger.Warn("failed to apply cached event during refresh",
				zap.String("eventId", e.Header.EventID),
				zap.Error(err),
			)
			continue
		}
		n.latestEventID.Store(e.Header.EventID)
		n.metrics.RecordDuration(metrics.CategoryReader, "event_processing_delay", n.clock().Sub(e.Header.Timestamp), nil)
	}
	return nil
}

func (n *Node) reload(ctx context.Context) error {
	snapshot, highWaterMark, err := n.persistentReader.Load(ctx)
	if err != nil {
		if accesserrors.Is(err, accesserrors.KindPersistentStorageEmpty) {
			n.logger.Debug("persistent storage empty, nothing to load")
			return nil
		}
		return accesserrors.ReaderRefreshFailed(err.Error())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.am.Load(snapshot); err != nil {
		return accesserrors.ReaderRefreshFailed(err.Error())
	}
	n.latestEventID.Store(highWaterMark)
	n.logger.Info("reader reloaded from persistent storage",
		zap.Int("eventCount", len(snapshot)),
		zap.String("highWaterMark", highWaterMark),
	)
	return nil
}

// WatermarkEventID returns the ID of the last event this reader has
// applied, or "" if none.
func (n *Node) WatermarkEventID() string {
	return n.watermark()
}
