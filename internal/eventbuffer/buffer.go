// Package eventbuffer implements the Writer Node's EventBuffer (§4.D): a
// FIFO queue of freshly written events that accumulates until a size,
// interval, or manual trigger fires a flush, at which point the buffered
// events are atomically swapped out and handed to a BulkEventPersister and
// the EventCache together. Grounded on the teacher's
// infrastructure/messaging/event_dispatcher.go accumulate-then-drain shape,
// adapted to the ordered, at-least-once replay semantics §4.D requires
// rather than fire-and-forget dispatch.
package eventbuffer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"applicationaccess/domain/events"
)

// Persister is implemented by anything that can durably persist a batch of
// events, idempotent on eventId so a retried flush after a partial failure
// never double-applies (§4.D edge case).
type Persister interface {
	PersistEvents(ctx context.Context, batch []events.Event) error
}

// Cache is implemented by anything that can absorb a freshly flushed batch
// for "since eventId" serving (§4.F).
type Cache interface {
	CacheEvents(batch []events.Event) error
}

// Clock abstracts time.Now so interval-triggered flush is deterministically
// testable, per the SPEC_FULL.md §4.D supplement (teacher pattern: pass
// time.Now as a field, not a global).
type Clock func() time.Time

// Buffer is a FIFO event buffer with size, interval, and manual flush
// triggers. The zero value is not usable; construct with New.
type Buffer struct {
	mu      sync.Mutex
	pending []events.Event

	sizeThreshold     int
	intervalThreshold time.Duration
	lastFlush         time.Time

	clock      Clock
	persister  Persister
	cache      Cache
	logger     *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Buffer at construction time.
type Option func(*Buffer)

// WithClock overrides the Buffer's time source.
func WithClock(clock Clock) Option {
	return func(b *Buffer) { b.clock = clock }
}

// New constructs a Buffer that flushes at sizeThreshold events or
// intervalThreshold elapsed time, whichever comes first.
func New(sizeThreshold int, intervalThreshold time.Duration, persister Persister, cache Cache, logger *zap.Logger, opts ...Option) *Buffer {
	b := &Buffer{
		sizeThreshold:     sizeThreshold,
		intervalThreshold: intervalThreshold,
		clock:             time.Now,
		persister:         persister,
		cache:             cache,
		logger:            logger,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastFlush = b.clock()
	return b
}

// AddEvent appends e to the buffer, triggering a flush if the size
// threshold is reached.
func (b *Buffer) AddEvent(ctx context.Context, e events.Event) error {
	b.mu.Lock()
	b.pending = append(b.pending, e)
	shouldFlush := len(b.pending) >= b.sizeThreshold
	b.mu.Unlock()

	if shouldFlush {
		return b.FlushNow(ctx)
	}
	return nil
}

// GetAndClear atomically swaps out the pending buffer and returns its
// contents, leaving the buffer empty. Exposed for tests and for callers
// that want to implement their own flush scheduling.
func (b *Buffer) GetAndClear() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.pending
	b.pending = nil
	b.lastFlush = b.clock()
	return batch
}

// FlushNow drains the buffer and hands the batch to the persister and
// cache. If persistence fails, the batch is put back at the front of the
// buffer so a retry sees it again in order, without duplicating anything
// appended in the meantime (§4.D edge case: retryable failure must not
// reorder or duplicate events).
func (b *Buffer) FlushNow(ctx context.Context) error {
	batch := b.GetAndClear()
	if len(batch) == 0 {
		return nil
	}

	if err := b.persister.PersistEvents(ctx, batch); err != nil {
		b.logger.Error("failed to persist event batch, restoring to buffer",
			zap.Int("batchSize", len(batch)),
			zap.Error(err),
		)
		b.mu.Lock()
		b.pending = append(append([]events.Event{}, batch...), b.pending...)
		b.mu.Unlock()
		return err
	}

	if err := b.cache.CacheEvents(batch); err != nil {
		b.logger.Error("failed to publish batch to cache", zap.Error(err))
		return err
	}

	b.logger.Debug("flushed event batch", zap.Int("batchSize", len(batch)))
	return nil
}

// Start runs a background goroutine that calls FlushNow whenever
// intervalThreshold elapses since the last flush. Stop must be called to
// release it.
func (b *Buffer) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.intervalThreshold)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.mu.Lock()
				elapsed := b.clock().Sub(b.lastFlush)
				hasPending := len(b.pending) > 0
				b.mu.Unlock()
				if hasPending && elapsed >= b.intervalThreshold {
					if err := b.FlushNow(ctx); err != nil {
						b.logger.Warn("interval flush failed", zap.Error(err))
					}
				}
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the interval-flush goroutine started by Start.
func (b *Buffer) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

// Len returns the number of events currently pending, for tests and
// operational introspection.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
