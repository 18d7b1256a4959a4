package eventbuffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
)

type fakePersister struct {
	mu      sync.Mutex
	err     error
	batches [][]events.Event
}

func (p *fakePersister) PersistEvents(ctx context.Context, batch []events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
	return p.err
}

type fakeCache struct {
	mu      sync.Mutex
	batches [][]events.Event
}

func (c *fakeCache) CacheEvents(batch []events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

func TestAddEvent_FlushesAtSizeThreshold(t *testing.T) {
	persister := &fakePersister{}
	cache := &fakeCache{}
	b := New(2, time.Hour, persister, cache, zap.NewNop())

	require.NoError(t, b.AddEvent(context.Background(), events.AddUser("a")))
	assert.Equal(t, 1, b.Len())
	require.NoError(t, b.AddEvent(context.Background(), events.AddUser("b")))

	assert.Equal(t, 0, b.Len())
	assert.Len(t, persister.batches, 1)
	assert.Len(t, persister.batches[0], 2)
}

func TestFlushNow_RestoresBatchToFrontOnPersistFailure(t *testing.T) {
	persister := &fakePersister{err: errors.New("write failed")}
	cache := &fakeCache{}
	b := New(10, time.Hour, persister, cache, zap.NewNop())

	require.NoError(t, b.AddEvent(context.Background(), events.AddUser("a")))
	err := b.FlushNow(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.AddEvent(context.Background(), events.AddUser("b")))
	assert.Equal(t, 2, b.Len())

	persister.err = nil
	require.NoError(t, b.FlushNow(context.Background()))
	require.Len(t, persister.batches, 2)
	assert.Len(t, persister.batches[1], 2)
	assert.Equal(t, "a", persister.batches[1][0].User)
	assert.Equal(t, "b", persister.batches[1][1].User)
}

func TestFlushNow_EmptyBufferIsNoop(t *testing.T) {
	persister := &fakePersister{}
	cache := &fakeCache{}
	b := New(10, time.Hour, persister, cache, zap.NewNop())

	require.NoError(t, b.FlushNow(context.Background()))
	assert.Empty(t, persister.batches)
}

func TestStart_FlushesOnIntervalElapsed(t *testing.T) {
	persister := &fakePersister{}
	cache := &fakeCache{}
	b := New(100, 10*time.Millisecond, persister, cache, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.AddEvent(ctx, events.AddUser("a")))

	b.Start(ctx)
	defer b.Stop()

	require.Eventually(t, func() bool {
		persister.mu.Lock()
		defer persister.mu.Unlock()
		return len(persister.batches) >= 1
	}, time.Second, 5*time.Millisecond)
}
