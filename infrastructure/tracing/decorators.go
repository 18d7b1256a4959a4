package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"applicationaccess/domain/events"
	"applicationaccess/internal/reader"
	"applicationaccess/internal/shard"
)

// TracePersistentReader wraps a reader.PersistentReader with a span around
// its Load call, the Reader Node's one unbounded-latency operation (§4.G
// reload path, a full table scan against the persistent store).
func TracePersistentReader(r reader.PersistentReader, tp *TracerProvider) reader.PersistentReader {
	if tp == nil {
		return r
	}
	return &tracedPersistentReader{inner: r, tp: tp}
}

type tracedPersistentReader struct {
	inner reader.PersistentReader
	tp    *TracerProvider
}

func (t *tracedPersistentReader) Load(ctx context.Context) ([]events.Event, string, error) {
	ctx, span := t.tp.StartSpan(ctx, "reader.Load")
	defer span.End()

	snapshot, highWaterMark, err := t.inner.Load(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return snapshot, highWaterMark, err
}

// TraceShardClient wraps a shard.Client with spans around its cross-shard
// RPCs, mirroring the teacher's TraceRepository decorator (traced*Repository
// wrapping a plain repository.NodeRepository).
func TraceShardClient(c shard.Client, tp *TracerProvider) shard.Client {
	if tp == nil {
		return c
	}
	return &tracedShardClient{inner: c, tp: tp}
}

type tracedShardClient struct {
	inner shard.Client
	tp    *TracerProvider
}

func (t *tracedShardClient) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string, includeIndirect bool) (bool, error) {
	ctx, span := t.tp.StartSpan(ctx, "shard.HasAccessToApplicationComponent",
		trace.WithAttributes(attribute.String("user", user), attribute.String("component", component)),
	)
	defer span.End()

	ok, err := t.inner.HasAccessToApplicationComponent(ctx, user, component, accessLevel, includeIndirect)
	if err != nil {
		span.RecordError(err)
	}
	return ok, err
}

func (t *tracedShardClient) GetGroupsForUser(ctx context.Context, user string) ([]string, error) {
	ctx, span := t.tp.StartSpan(ctx, "shard.GetGroupsForUser", trace.WithAttributes(attribute.String("user", user)))
	defer span.End()

	groups, err := t.inner.GetGroupsForUser(ctx, user)
	if err != nil {
		span.RecordError(err)
	}
	return groups, err
}

func (t *tracedShardClient) GetGroupsForGroup(ctx context.Context, group string) ([]string, error) {
	ctx, span := t.tp.StartSpan(ctx, "shard.GetGroupsForGroup", trace.WithAttributes(attribute.String("group", group)))
	defer span.End()

	groups, err := t.inner.GetGroupsForGroup(ctx, group)
	if err != nil {
		span.RecordError(err)
	}
	return groups, err
}

func (t *tracedShardClient) DescribeID() string { return t.inner.DescribeID() }
