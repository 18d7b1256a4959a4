package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"applicationaccess/internal/config"
	"applicationaccess/internal/shard"
)

func TestInit_DisabledReturnsNilProviderWithoutError(t *testing.T) {
	tp, err := Init(context.Background(), config.Tracing{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestShutdown_NilProviderIsNoop(t *testing.T) {
	var tp *TracerProvider
	assert.NoError(t, tp.Shutdown(context.Background()))
}

type fakeShardClient struct {
	id     string
	access bool
}

func (f *fakeShardClient) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string, includeIndirect bool) (bool, error) {
	return f.access, nil
}
func (f *fakeShardClient) GetGroupsForUser(ctx context.Context, user string) ([]string, error) {
	return nil, nil
}
func (f *fakeShardClient) GetGroupsForGroup(ctx context.Context, group string) ([]string, error) {
	return nil, nil
}
func (f *fakeShardClient) DescribeID() string { return f.id }

func TestTraceShardClient_NilProviderReturnsUnwrappedClient(t *testing.T) {
	c := &fakeShardClient{id: "shard-0"}
	wrapped := TraceShardClient(c, nil)
	assert.Same(t, shard.Client(c), wrapped)
}

func TestTraceShardClient_WrappedClientDelegatesCalls(t *testing.T) {
	tp := &TracerProvider{tracer: noop.NewTracerProvider().Tracer("test")}

	c := &fakeShardClient{id: "shard-0", access: true}
	wrapped := TraceShardClient(c, tp)
	assert.NotSame(t, shard.Client(c), wrapped)
	assert.Equal(t, "shard-0", wrapped.DescribeID())

	ok, err := wrapped.HasAccessToApplicationComponent(context.Background(), "alice", "reporting", "write", false)
	require.NoError(t, err)
	assert.True(t, ok)
}
