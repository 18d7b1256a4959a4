package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"applicationaccess/domain/accessmanager"
	"applicationaccess/domain/events"
)

type fakeMutator struct {
	applyErr error
	applied  []events.Event
}

func (f *fakeMutator) Apply(e events.Event) error {
	f.applied = append(f.applied, e)
	return f.applyErr
}

type fakeSink struct {
	addErr error
	added  []events.Event
}

func (f *fakeSink) AddEvent(ctx context.Context, e events.Event) error {
	f.added = append(f.added, e)
	return f.addErr
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(events.Event) error { return errors.New("rejected") }

func TestWrite_StampsEventIDTimestampAndHash(t *testing.T) {
	mutator := &fakeMutator{}
	sink := &fakeSink{}
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := New(mutator, sink, zap.NewNop(), WithClock(func() time.Time { return fixed }))

	err := n.Write(context.Background(), events.AddUser("alice"))
	require.NoError(t, err)
	require.Len(t, sink.added, 1)

	stamped := sink.added[0]
	assert.NotEmpty(t, stamped.Header.EventID)
	assert.Equal(t, fixed, stamped.Header.Timestamp)
	assert.NotZero(t, stamped.Header.HashCode)
}

func TestWrite_ValidationFailureSkipsApplyAndSink(t *testing.T) {
	mutator := &fakeMutator{}
	sink := &fakeSink{}
	n := New(mutator, sink, zap.NewNop(), WithValidator(rejectingValidator{}))

	err := n.Write(context.Background(), events.AddUser("alice"))
	assert.Error(t, err)
	assert.Empty(t, mutator.applied)
	assert.Empty(t, sink.added)
}

func TestWrite_MutatorFailureSkipsSink(t *testing.T) {
	mutator := &fakeMutator{applyErr: errors.New("duplicate")}
	sink := &fakeSink{}
	n := New(mutator, sink, zap.NewNop())

	err := n.Write(context.Background(), events.AddUser("alice"))
	assert.Error(t, err)
	assert.Empty(t, sink.added)
}

func TestWrite_SinkFailureWrapsError(t *testing.T) {
	mutator := &fakeMutator{}
	sink := &fakeSink{addErr: errors.New("buffer full")}
	n := New(mutator, sink, zap.NewNop())

	err := n.Write(context.Background(), events.AddUser("alice"))
	assert.ErrorContains(t, err, "event applied but failed to buffer")
}

func TestWrite_StampedHeaderSurvivesIntoAccessManagerSink(t *testing.T) {
	amSink := &capturingSink{}
	am := accessmanager.New(accessmanager.WithSink(amSink))
	bufferedSink := &fakeSink{}

	n := New(am, bufferedSink, zap.NewNop())

	err := n.Write(context.Background(), events.AddUser("alice"))
	require.NoError(t, err)
	require.Len(t, amSink.events, 1)
	require.Len(t, bufferedSink.added, 1)

	assert.Equal(t, bufferedSink.added[0].Header, amSink.events[0].Header)
	assert.NotEmpty(t, amSink.events[0].Header.EventID)
	assert.False(t, amSink.events[0].Header.Timestamp.IsZero())
}

type capturingSink struct {
	events []events.Event
}

func (s *capturingSink) Append(e events.Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestDefaultHash_DiffersForDifferentPayloads(t *testing.T) {
	h1 := DefaultHash(events.AddUser("alice"))
	h2 := DefaultHash(events.AddUser("bob"))
	assert.NotEqual(t, h1, h2)
}

type spySink struct {
	received []events.Event
	err      error
}

func (s *spySink) Append(e events.Event) error {
	s.received = append(s.received, e)
	return s.err
}

func TestDistributor_FansOutToAllSinksDespiteOneFailing(t *testing.T) {
	failing := &spySink{err: errors.New("down")}
	ok := &spySink{}
	d := NewDistributor(failing, ok)

	err := d.Append(events.AddUser("alice"))
	assert.Error(t, err)
	assert.Len(t, failing.received, 1)
	assert.Len(t, ok.received, 1)
}
