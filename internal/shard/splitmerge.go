package shard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

// RouterComponentQueue is a temporary holding buffer used during a shard
// split or merge: writes that arrive for the range under reconfiguration
// are queued here instead of being routed directly, so no event is lost or
// misrouted while the target shard(s) are still catching up on a batched
// replay of the range's history (§4.H).
type RouterComponentQueue struct {
	mu     chan struct{} // binary semaphore-style guard via buffered channel
	events []events.Event
}

// NewRouterComponentQueue constructs an empty queue.
func NewRouterComponentQueue() *RouterComponentQueue {
	q := &RouterComponentQueue{mu: make(chan struct{}, 1)}
	q.mu <- struct{}{}
	return q
}

func (q *RouterComponentQueue) lock()   { <-q.mu }
func (q *RouterComponentQueue) unlock() { q.mu <- struct{}{} }

// Enqueue appends e to the queue.
func (q *RouterComponentQueue) Enqueue(e events.Event) {
	q.lock()
	defer q.unlock()
	q.events = append(q.events, e)
}

// Drain removes and returns every queued event.
func (q *RouterComponentQueue) Drain() []events.Event {
	q.lock()
	defer q.unlock()
	out := q.events
	q.events = nil
	return out
}

// ReplayTarget is the shard-side interface the split/merge protocol batches
// a replay against.
type ReplayTarget interface {
	ApplyBatch(ctx context.Context, batch []events.Event) error
	IsCaughtUp(ctx context.Context) (bool, error)
}

// SplitMergeCoordinator drives the reconfiguration protocol: queue writes
// for the affected range, batch-replay the range's history into the new
// target(s), poll until the target reports caught up (bounded retry), then
// drain the queue into the target. Swapping the router's configuration is
// left to the caller.
type SplitMergeCoordinator struct {
	logger      *zap.Logger
	pollInterval time.Duration
	maxPolls    int
}

// NewSplitMergeCoordinator constructs a coordinator with the given poll
// cadence and bounded retry count.
func NewSplitMergeCoordinator(pollInterval time.Duration, maxPolls int, logger *zap.Logger) *SplitMergeCoordinator {
	return &SplitMergeCoordinator{logger: logger, pollInterval: pollInterval, maxPolls: maxPolls}
}

// Execute runs the protocol for a single target, replaying history then
// polling for completion. On success it has already drained queue into
// target, returns nil, and the caller is expected to swap the router
// configuration; on
// failure after exhausting maxPolls it returns ServiceUnavailable so the
// caller can abort the reconfiguration and leave the old configuration in
// place.
func (c *SplitMergeCoordinator) Execute(ctx context.Context, target ReplayTarget, history []events.Event, queue *RouterComponentQueue) error {
	if err := target.ApplyBatch(ctx, history); err != nil {
		return accesserrors.Internal("failed to replay shard history: " + err.Error())
	}

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		caughtUp, err := target.IsCaughtUp(ctx)
		if err != nil {
			c.logger.Warn("error polling shard catch-up state", zap.Error(err))
		} else if caughtUp {
			queued := queue.Drain()
			if len(queued) > 0 {
				if err := target.ApplyBatch(ctx, queued); err != nil {
					return accesserrors.Internal("failed to replay queued writes: " + err.Error())
				}
			}
			return nil
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return accesserrors.ServiceUnavailable("shard reconfiguration did not complete within retry budget")
}
