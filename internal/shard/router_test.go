package shard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	id             string
	access         bool
	accessErr      error
	groupsForUser  []string
	groupsForGroup map[string][]string
}

func (f *fakeClient) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string, includeIndirect bool) (bool, error) {
	return f.access, f.accessErr
}

func (f *fakeClient) GetGroupsForUser(ctx context.Context, user string) ([]string, error) {
	return f.groupsForUser, nil
}

func (f *fakeClient) GetGroupsForGroup(ctx context.Context, group string) ([]string, error) {
	return f.groupsForGroup[group], nil
}

func (f *fakeClient) DescribeID() string { return f.id }

func TestConfiguration_Route_BoundaryValues(t *testing.T) {
	low := &fakeClient{id: "low"}
	high := &fakeClient{id: "high"}
	cfg := NewConfiguration([]ShardGroup{
		{Range: HashRange{Start: 0, End: 999}, Client: low},
		{Range: HashRange{Start: 1000, End: 1999}, Client: high},
	})

	keyBelow := findKeyWithHash(t, cfg, 0, 999)
	group, err := cfg.Route(keyBelow)
	require.NoError(t, err)
	assert.Equal(t, "low", group.Client.DescribeID())

	keyAbove := findKeyWithHash(t, cfg, 1000, 1999)
	group, err = cfg.Route(keyAbove)
	require.NoError(t, err)
	assert.Equal(t, "high", group.Client.DescribeID())
}

func TestConfiguration_Route_NoCoveringShard(t *testing.T) {
	only := &fakeClient{id: "only"}
	cfg := NewConfiguration([]ShardGroup{
		{Range: HashRange{Start: 0, End: 10}, Client: only},
	})
	key := findKeyWithHash(t, cfg, 11, 1<<30)
	_, err := cfg.Route(key)
	assert.Error(t, err)
}

// findKeyWithHash scans small integer-derived keys until one hashes into
// [lo, hi], so tests can exercise specific boundary behavior without
// depending on FNV-1a's exact output for any particular literal.
func findKeyWithHash(t *testing.T, cfg *Configuration, lo, hi int32) string {
	t.Helper()
	for i := 0; i < 100000; i++ {
		key := keyFromInt(i)
		h := HashKey(key)
		if h >= lo && h <= hi {
			return key
		}
	}
	t.Fatalf("no key found hashing into [%d, %d]", lo, hi)
	return ""
}

func keyFromInt(i int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if i == 0 {
		return "k0"
	}
	s := make([]byte, 0, 8)
	for i > 0 {
		s = append(s, digits[i%len(digits)])
		i /= len(digits)
	}
	return "k" + string(s)
}

func TestRouter_HasAccessToApplicationComponent_DirectHit(t *testing.T) {
	c := &fakeClient{id: "shard-0", access: true}
	cfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: c}})
	r := New(map[ElementType]*Configuration{User: cfg}, zap.NewNop())

	ok, err := r.HasAccessToApplicationComponent(context.Background(), "alice", "reporting", "write", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRouter_HasAccessToApplicationComponent_DirectMissFallsThroughToExpansion(t *testing.T) {
	userShard := &fakeClient{id: "user-shard", access: false, groupsForUser: []string{"groupA"}}
	groupShard := &fakeClient{
		id: "group-shard",
		groupsForGroup: map[string][]string{
			"groupA": {"reporting"},
		},
	}
	cfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: userShard}})
	groupCfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: groupShard}})
	r := New(map[ElementType]*Configuration{User: cfg, Group: groupCfg}, zap.NewNop())

	ok, err := r.HasAccessToApplicationComponent(context.Background(), "alice", "reporting", "write", true)
	require.NoError(t, err)
	assert.True(t, ok, "a clean 'no' from the owning shard must not short-circuit indirect expansion")
}

func TestRouter_HasAccessToApplicationComponent_DirectMissWithoutIndirectStaysFalse(t *testing.T) {
	userShard := &fakeClient{id: "user-shard", access: false, groupsForUser: []string{"groupA"}}
	cfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: userShard}})
	r := New(map[ElementType]*Configuration{User: cfg}, zap.NewNop())

	ok, err := r.HasAccessToApplicationComponent(context.Background(), "alice", "reporting", "write", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouter_ExpandGroupQuery_WalksFrontier(t *testing.T) {
	userShard := &fakeClient{id: "user-shard", groupsForUser: []string{"groupA"}}
	groupShard := &fakeClient{
		id: "group-shard",
		groupsForGroup: map[string][]string{
			"groupA": {"groupB"},
			"groupB": {"targetComponent"},
		},
	}

	userCfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: userShard}})
	groupCfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: groupShard}})
	r := New(map[ElementType]*Configuration{User: userCfg, Group: groupCfg}, zap.NewNop())

	ok, err := r.expandGroupQuery(context.Background(), "alice", "targetComponent", "read")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRouter_ExpandGroupQuery_ExhaustsWithoutMatch(t *testing.T) {
	userShard := &fakeClient{id: "user-shard", groupsForUser: []string{"groupA"}}
	groupShard := &fakeClient{
		id:             "group-shard",
		groupsForGroup: map[string][]string{"groupA": {}},
	}

	userCfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: userShard}})
	groupCfg := NewConfiguration([]ShardGroup{{Range: HashRange{Start: -2147483648, End: 2147483647}, Client: groupShard}})
	r := New(map[ElementType]*Configuration{User: userCfg, Group: groupCfg}, zap.NewNop())

	ok, err := r.expandGroupQuery(context.Background(), "alice", "nonexistent", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouter_Rebalance_PartitionsFullRangeWithoutGaps(t *testing.T) {
	clients := []Client{&fakeClient{id: "a"}, &fakeClient{id: "b"}, &fakeClient{id: "c"}}
	r := New(map[ElementType]*Configuration{}, zap.NewNop())
	r.Rebalance(User, clients)

	ranges := r.DescribeShardConfiguration()[User]
	require.Len(t, ranges, 3)

	assert.Equal(t, int32(-2147483648), ranges[0].Start)
	assert.Equal(t, int32(2147483647), ranges[len(ranges)-1].End)
	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1].End+1, ranges[i].Start, "ranges must be contiguous with no gap or overlap")
	}
}

func TestRouter_Rebalance_NoClientsLeavesConfigurationUnchanged(t *testing.T) {
	original := NewConfiguration([]ShardGroup{{Range: HashRange{Start: 0, End: 10}, Client: &fakeClient{id: "x"}}})
	r := New(map[ElementType]*Configuration{User: original}, zap.NewNop())
	r.Rebalance(User, nil)
	assert.Same(t, original, r.configFor(User))
}

func TestDescribeShardConfiguration_ReflectsCurrentConfig(t *testing.T) {
	cfg := NewConfiguration([]ShardGroup{
		{Range: HashRange{Start: 0, End: 99}, Client: &fakeClient{id: "shard-0"}},
		{Range: HashRange{Start: 100, End: 199}, Client: &fakeClient{id: "shard-1"}},
	})
	r := New(map[ElementType]*Configuration{Group: cfg}, zap.NewNop())

	desc := r.DescribeShardConfiguration()
	require.Contains(t, desc, Group)
	assert.Len(t, desc[Group], 2)
}
