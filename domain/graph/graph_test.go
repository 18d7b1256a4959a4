package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicationaccess/pkg/accesserrors"
)

func TestAddLeafVertex_DuplicateReturnsAlreadyExists(t *testing.T) {
	g := New(false)
	require.NoError(t, g.AddLeafVertex("alice"))
	err := g.AddLeafVertex("alice")
	assert.True(t, accesserrors.Is(err, accesserrors.KindAlreadyExists))
}

func TestRemoveLeafVertex_UnknownReturnsNotFound(t *testing.T) {
	g := New(false)
	err := g.RemoveLeafVertex("ghost")
	assert.True(t, accesserrors.Is(err, accesserrors.KindNotFound))
}

func TestRemoveLeafVertex_CleansUpOutgoingEdges(t *testing.T) {
	g := New(true)
	require.NoError(t, g.AddLeafVertex("alice"))
	require.NoError(t, g.AddNonLeafVertex("admins"))
	require.NoError(t, g.AddLeafToNonLeafEdge("alice", "admins"))

	require.NoError(t, g.RemoveLeafVertex("alice"))
	assert.Empty(t, g.GetLeavesForNonLeaf("admins"))
}

func TestAddLeafToNonLeafEdge_RequiresBothEndpoints(t *testing.T) {
	g := New(false)
	err := g.AddLeafToNonLeafEdge("alice", "admins")
	assert.True(t, accesserrors.Is(err, accesserrors.KindNotFound))

	require.NoError(t, g.AddLeafVertex("alice"))
	err = g.AddLeafToNonLeafEdge("alice", "admins")
	assert.True(t, accesserrors.Is(err, accesserrors.KindNotFound))
}

func TestAddNonLeafToNonLeafEdge_RejectsSelfLoop(t *testing.T) {
	g := New(false)
	require.NoError(t, g.AddNonLeafVertex("admins"))
	err := g.AddNonLeafToNonLeafEdge("admins", "admins")
	assert.True(t, accesserrors.Is(err, accesserrors.KindWouldCreateCycle))
}

func TestAddNonLeafToNonLeafEdge_RejectsTransitiveCycle(t *testing.T) {
	g := New(false)
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNonLeafVertex(v))
	}
	require.NoError(t, g.AddNonLeafToNonLeafEdge("a", "b"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("b", "c"))

	err := g.AddNonLeafToNonLeafEdge("c", "a")
	assert.True(t, accesserrors.Is(err, accesserrors.KindWouldCreateCycle))
}

func TestRemoveNonLeafVertex_CleansUpAllDirections(t *testing.T) {
	g := New(true)
	require.NoError(t, g.AddLeafVertex("alice"))
	for _, v := range []string{"mid", "parent", "child"} {
		require.NoError(t, g.AddNonLeafVertex(v))
	}
	require.NoError(t, g.AddLeafToNonLeafEdge("alice", "mid"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("mid", "parent"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("child", "mid"))

	require.NoError(t, g.RemoveNonLeafVertex("mid"))

	assert.Empty(t, g.GetLeafEdges("alice"))
	assert.Empty(t, g.GetNonLeafReverseEdges("parent"))
	assert.Empty(t, g.GetNonLeafEdges("child"))
}

func TestTraverseTransitiveClosure_ForwardAndReverse(t *testing.T) {
	g := New(false)
	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.AddNonLeafVertex(v))
	}
	require.NoError(t, g.AddNonLeafToNonLeafEdge("a", "b"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("b", "c"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("b", "d"))

	forward := g.TraverseTransitiveClosure([]string{"a"}, Forward)
	sort.Strings(forward)
	assert.Equal(t, []string{"b", "c", "d"}, forward)

	reverse := g.TraverseTransitiveClosure([]string{"d"}, Reverse)
	sort.Strings(reverse)
	assert.Equal(t, []string{"a", "b"}, reverse)
}

func TestHasPath_SameVertexIsTrue(t *testing.T) {
	g := New(false)
	require.NoError(t, g.AddNonLeafVertex("a"))
	assert.True(t, g.HasPath("a", "a"))
}

func TestGetLeavesForNonLeaf_RequiresBidirectional(t *testing.T) {
	g := New(false)
	require.NoError(t, g.AddLeafVertex("alice"))
	require.NoError(t, g.AddNonLeafVertex("admins"))
	require.NoError(t, g.AddLeafToNonLeafEdge("alice", "admins"))

	assert.Empty(t, g.GetLeavesForNonLeaf("admins"))
}
