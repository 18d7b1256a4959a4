package shard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
)

type fakeReplayTarget struct {
	applyErr     error
	caughtUpAt   int
	calls        int
	appliedBatches [][]events.Event
}

func (f *fakeReplayTarget) ApplyBatch(ctx context.Context, batch []events.Event) error {
	f.appliedBatches = append(f.appliedBatches, batch)
	return f.applyErr
}

func (f *fakeReplayTarget) IsCaughtUp(ctx context.Context) (bool, error) {
	f.calls++
	return f.calls >= f.caughtUpAt, nil
}

func TestSplitMergeCoordinator_Execute_DrainsQueueOnceCaughtUp(t *testing.T) {
	target := &fakeReplayTarget{caughtUpAt: 2}
	queue := NewRouterComponentQueue()
	queue.Enqueue(events.AddUser("pending-user"))

	c := NewSplitMergeCoordinator(time.Millisecond, 5, zap.NewNop())
	err := c.Execute(context.Background(), target, []events.Event{events.AddUser("u1")}, queue)

	require.NoError(t, err)
	assert.Len(t, target.appliedBatches, 2)
	assert.Empty(t, queue.Drain())
}

func TestSplitMergeCoordinator_Execute_FailsAfterRetryBudget(t *testing.T) {
	target := &fakeReplayTarget{caughtUpAt: 1000}
	queue := NewRouterComponentQueue()

	c := NewSplitMergeCoordinator(time.Millisecond, 3, zap.NewNop())
	err := c.Execute(context.Background(), target, nil, queue)

	assert.Error(t, err)
}

func TestSplitMergeCoordinator_Execute_ReplayFailureAborts(t *testing.T) {
	target := &fakeReplayTarget{applyErr: errors.New("boom")}
	queue := NewRouterComponentQueue()

	c := NewSplitMergeCoordinator(time.Millisecond, 3, zap.NewNop())
	err := c.Execute(context.Background(), target, []events.Event{events.AddUser("u1")}, queue)

	assert.Error(t, err)
}

func TestRouterComponentQueue_EnqueueAndDrain(t *testing.T) {
	q := NewRouterComponentQueue()
	q.Enqueue(events.AddUser("a"))
	q.Enqueue(events.AddUser("b"))

	drained := q.Drain()
	assert.Len(t, drained, 2)
	assert.Empty(t, q.Drain())
}
