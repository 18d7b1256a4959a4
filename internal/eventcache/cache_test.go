package eventcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

func withID(e events.Event, id string) events.Event {
	e.Header.EventID = id
	return e
}

func TestGetAllEventsSince_EmptyCacheReturnsCacheEmpty(t *testing.T) {
	c := New(10)
	_, err := c.GetAllEventsSince("")
	assert.True(t, accesserrors.Is(err, accesserrors.KindCacheEmpty))
}

func TestGetAllEventsSince_UnknownPriorReturnsEventNotCached(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{withID(events.AddUser("a"), "e1")}))

	_, err := c.GetAllEventsSince("nonexistent")
	assert.True(t, accesserrors.Is(err, accesserrors.KindEventNotCached))
}

func TestGetAllEventsSince_ReturnsEmptyWhenAlreadyCaughtUp(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{withID(events.AddUser("a"), "e1")}))

	batch, err := c.GetAllEventsSince("e1")
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestGetAllEventsSince_ReturnsEventsAfterPrior(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{
		withID(events.AddUser("a"), "e1"),
		withID(events.AddUser("b"), "e2"),
		withID(events.AddUser("c"), "e3"),
	}))

	batch, err := c.GetAllEventsSince("e1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "e2", batch[0].Header.EventID)
	assert.Equal(t, "e3", batch[1].Header.EventID)
}

func TestCacheEvents_EvictsOldestOverCapacity(t *testing.T) {
	c := New(2)
	require.NoError(t, c.CacheEvents([]events.Event{
		withID(events.AddUser("a"), "e1"),
		withID(events.AddUser("b"), "e2"),
		withID(events.AddUser("c"), "e3"),
	}))

	assert.Equal(t, 2, c.Len())
	_, err := c.GetAllEventsSince("e1")
	assert.True(t, accesserrors.Is(err, accesserrors.KindEventNotCached))

	latest, ok := c.Latest()
	assert.True(t, ok)
	assert.Equal(t, "e3", latest)
}

func TestCacheEvents_DedupesByEventID(t *testing.T) {
	c := New(10)
	e := withID(events.AddUser("a"), "e1")
	require.NoError(t, c.CacheEvents([]events.Event{e, e}))
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvents_DropsUnstampedEventsInsteadOfCollapsingThem(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{
		events.AddUser("a"), // EventID == "", simulating a Writer bug upstream
		events.AddUser("b"), // a second, distinct, equally unstamped event
	}))
	assert.Equal(t, 0, c.Len())
}

func TestGetAllEventsSince_FreshReaderAgainstNonEmptyCacheReturnsEverything(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{
		withID(events.AddUser("a"), "e1"),
		withID(events.AddUser("b"), "e2"),
		withID(events.AddUser("c"), "e3"),
	}))

	batch, err := c.GetAllEventsSince(events.ZeroEventID)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "e1", batch[0].Header.EventID)
	assert.Equal(t, "e3", batch[2].Header.EventID)
}

func TestGetAllEventsSince_FreshReaderWithEmptyStringWatermarkAlsoCatchesUp(t *testing.T) {
	c := New(10)
	require.NoError(t, c.CacheEvents([]events.Event{
		withID(events.AddUser("a"), "e1"),
		withID(events.AddUser("b"), "e2"),
	}))

	batch, err := c.GetAllEventsSince("")
	require.NoError(t, err)
	require.Len(t, batch, 2)
}
