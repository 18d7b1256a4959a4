package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddUserToGroupMapping_SetsPayloadAndKind(t *testing.T) {
	e := AddUserToGroupMapping("alice", "admins")
	assert.Equal(t, KindAddUserToGroupMapping, e.Header.Kind)
	assert.Equal(t, "alice", e.UserToGroupUser)
	assert.Equal(t, "admins", e.UserToGroupGroup)
}

func TestAddGroupToApplicationComponentAndAccessLevelMapping_SetsAllFields(t *testing.T) {
	e := AddGroupToApplicationComponentAndAccessLevelMapping("admins", "billing", "write")
	assert.Equal(t, KindAddGroupToApplicationComponentAndAccessLevelMapping, e.Header.Kind)
	assert.Equal(t, "admins", e.Group)
	assert.Equal(t, "billing", e.ApplicationComponent)
	assert.Equal(t, "write", e.AccessLevel)
}

func TestNew_LeavesStampFieldsZero(t *testing.T) {
	e := New(KindAddUser)
	assert.Empty(t, e.Header.EventID)
	assert.True(t, e.Header.Timestamp.IsZero())
	assert.Zero(t, e.Header.HashCode)
}

func TestNopSink_AppendAlwaysSucceeds(t *testing.T) {
	var s Sink = NopSink{}
	assert.NoError(t, s.Append(AddUser("alice")))
}
