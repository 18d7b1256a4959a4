package accessmanager

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

type spySink struct {
	events []events.Event
}

func (s *spySink) Append(e events.Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestHasAccessToApplicationComponent_DirectGrant(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddUserToApplicationComponentAndAccessLevelMapping("alice", "billing", "read"))

	assert.True(t, am.HasAccessToApplicationComponent("alice", "billing", "read", false))
	assert.False(t, am.HasAccessToApplicationComponent("alice", "billing", "write", false))
}

func TestHasAccessToApplicationComponent_IndirectThroughNestedGroups(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddGroup("engineers"))
	require.NoError(t, am.AddGroup("all-staff"))
	require.NoError(t, am.AddUserToGroupMapping("alice", "engineers"))
	require.NoError(t, am.AddGroupToGroupMapping("engineers", "all-staff"))
	require.NoError(t, am.AddGroupToApplicationComponentAndAccessLevelMapping("all-staff", "wiki", "read"))

	assert.False(t, am.HasAccessToApplicationComponent("alice", "wiki", "read", false))
	assert.True(t, am.HasAccessToApplicationComponent("alice", "wiki", "read", true))
}

func TestAddGroupToGroupMapping_RejectsCycle(t *testing.T) {
	am := New()
	require.NoError(t, am.AddGroup("a"))
	require.NoError(t, am.AddGroup("b"))
	require.NoError(t, am.AddGroupToGroupMapping("a", "b"))

	err := am.AddGroupToGroupMapping("b", "a")
	assert.True(t, accesserrors.Is(err, accesserrors.KindWouldCreateCycle))
}

func TestAddUserToGroupMapping_UnknownGroupReturnsNotFound(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	err := am.AddUserToGroupMapping("alice", "ghosts")
	assert.True(t, accesserrors.Is(err, accesserrors.KindNotFound))
}

func TestDependencyFree_SynthesizesMissingGroup(t *testing.T) {
	am := DependencyFree()
	require.NoError(t, am.AddUser("alice"))

	err := am.AddUserToGroupMapping("alice", "engineers")
	require.NoError(t, err)
	assert.True(t, am.ContainsGroup("engineers"))
}

func TestRemoveUser_ClearsComponentAndEntityMappings(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddUserToApplicationComponentAndAccessLevelMapping("alice", "billing", "read"))
	require.NoError(t, am.RemoveUser("alice"))

	assert.False(t, am.ContainsUser("alice"))
	assert.Empty(t, am.GetApplicationComponentsAccessibleByUser("alice", true))
}

func TestRemoveEntityType_CascadesToMappings(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddEntityType("document"))
	require.NoError(t, am.AddEntity("document", "doc-1"))
	require.NoError(t, am.AddUserToEntityMapping("alice", "document", "doc-1"))

	require.NoError(t, am.RemoveEntityType("document"))
	assert.False(t, am.HasAccessToEntity("alice", "document", "doc-1", false))
}

func TestGetApplicationComponentsAccessibleByUser_DedupesAcrossGroups(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddGroup("g1"))
	require.NoError(t, am.AddGroup("g2"))
	require.NoError(t, am.AddUserToGroupMapping("alice", "g1"))
	require.NoError(t, am.AddUserToGroupMapping("alice", "g2"))
	require.NoError(t, am.AddGroupToApplicationComponentAndAccessLevelMapping("g1", "billing", "read"))
	require.NoError(t, am.AddGroupToApplicationComponentAndAccessLevelMapping("g2", "billing", "read"))

	accesses := am.GetApplicationComponentsAccessibleByUser("alice", true)
	assert.Len(t, accesses, 1)
}

func TestGetUsersForApplicationComponent_IncludesIndirectGroupMembers(t *testing.T) {
	am := New(WithBidirectional(true))
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddGroup("engineers"))
	require.NoError(t, am.AddGroup("all-staff"))
	require.NoError(t, am.AddUserToGroupMapping("alice", "engineers"))
	require.NoError(t, am.AddGroupToGroupMapping("engineers", "all-staff"))
	require.NoError(t, am.AddGroupToApplicationComponentAndAccessLevelMapping("all-staff", "wiki", "read"))

	users := am.GetUsersForApplicationComponent("wiki", "read", true)
	sort.Strings(users)
	assert.Equal(t, []string{"alice"}, users)
}

func TestMutations_EmitEventsOnSuccess(t *testing.T) {
	sink := &spySink{}
	am := New(WithSink(sink))
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddGroup("engineers"))
	require.NoError(t, am.AddUserToGroupMapping("alice", "engineers"))

	require.Len(t, sink.events, 3)
	assert.Equal(t, events.KindAddUser, sink.events[0].Header.Kind)
	assert.Equal(t, events.KindAddGroup, sink.events[1].Header.Kind)
	assert.Equal(t, events.KindAddUserToGroupMapping, sink.events[2].Header.Kind)
}

func TestAddUserToApplicationComponentAndAccessLevelMapping_DuplicateReturnsAlreadyExists(t *testing.T) {
	am := New()
	require.NoError(t, am.AddUser("alice"))
	require.NoError(t, am.AddUserToApplicationComponentAndAccessLevelMapping("alice", "billing", "read"))

	err := am.AddUserToApplicationComponentAndAccessLevelMapping("alice", "billing", "read")
	assert.True(t, accesserrors.Is(err, accesserrors.KindAlreadyExists))
}

func TestLoad_ReplaysEventsAndIgnoresDuplicates(t *testing.T) {
	am := New()
	snapshot := []events.Event{
		events.AddUser("alice"),
		events.AddGroup("engineers"),
		events.AddUserToGroupMapping("alice", "engineers"),
		events.AddGroup("engineers"), // duplicate, must not abort the load
	}
	require.NoError(t, am.Load(snapshot))

	assert.True(t, am.ContainsUser("alice"))
	assert.True(t, am.ContainsGroup("engineers"))
}

func TestApply_DispatchesByKind(t *testing.T) {
	am := New()
	require.NoError(t, am.Apply(events.AddUser("alice")))
	assert.True(t, am.ContainsUser("alice"))
}

func TestApply_UnknownKindReturnsError(t *testing.T) {
	am := New()
	err := am.Apply(events.Event{Header: events.Header{Kind: "BOGUS"}})
	assert.Error(t, err)
}

func TestApply_PreservesStampedHeaderOnEmittedEvent(t *testing.T) {
	sink := &spySink{}
	am := New(WithSink(sink))

	stamped := events.AddUser("alice")
	stamped.Header.EventID = "11111111-1111-1111-1111-111111111111"
	stamped.Header.Timestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stamped.Header.HashCode = 42

	require.NoError(t, am.Apply(stamped))
	require.Len(t, sink.events, 1)
	assert.Equal(t, stamped.Header, sink.events[0].Header)
}
