// Package events defines the wire-level mutation events that flow from the
// Writer Node through the EventBuffer, BulkEventPersister and EventCache to
// every Reader Node in the cluster. Every mutation to the access graph is
// represented as exactly one Event value; there is no class hierarchy here,
// only a closed set of payload kinds dispatched through a single exhaustive
// switch, so that persistence and cache layers never need reflection or a
// type registry to round-trip an event.
package events

import "time"

// Kind identifies which of the ten mutation payloads an Event carries.
type Kind string

const (
	KindAddUser                       Kind = "ADD_USER"
	KindRemoveUser                    Kind = "REMOVE_USER"
	KindAddGroup                      Kind = "ADD_GROUP"
	KindRemoveGroup                   Kind = "REMOVE_GROUP"
	KindAddUserToGroupMapping         Kind = "ADD_USER_TO_GROUP_MAPPING"
	KindRemoveUserToGroupMapping      Kind = "REMOVE_USER_TO_GROUP_MAPPING"
	KindAddGroupToGroupMapping        Kind = "ADD_GROUP_TO_GROUP_MAPPING"
	KindRemoveGroupToGroupMapping     Kind = "REMOVE_GROUP_TO_GROUP_MAPPING"
	KindAddUserToApplicationComponentAndAccessLevelMapping    Kind = "ADD_USER_TO_COMPONENT_AND_ACCESS_LEVEL_MAPPING"
	KindRemoveUserToApplicationComponentAndAccessLevelMapping Kind = "REMOVE_USER_TO_COMPONENT_AND_ACCESS_LEVEL_MAPPING"
	KindAddGroupToApplicationComponentAndAccessLevelMapping    Kind = "ADD_GROUP_TO_COMPONENT_AND_ACCESS_LEVEL_MAPPING"
	KindRemoveGroupToApplicationComponentAndAccessLevelMapping Kind = "REMOVE_GROUP_TO_COMPONENT_AND_ACCESS_LEVEL_MAPPING"
	KindAddEntityType                 Kind = "ADD_ENTITY_TYPE"
	KindRemoveEntityType               Kind = "REMOVE_ENTITY_TYPE"
	KindAddEntity                     Kind = "ADD_ENTITY"
	KindRemoveEntity                  Kind = "REMOVE_ENTITY"
	KindAddUserToEntityMapping         Kind = "ADD_USER_TO_ENTITY_MAPPING"
	KindRemoveUserToEntityMapping      Kind = "REMOVE_USER_TO_ENTITY_MAPPING"
	KindAddGroupToEntityMapping        Kind = "ADD_GROUP_TO_ENTITY_MAPPING"
	KindRemoveGroupToEntityMapping     Kind = "REMOVE_GROUP_TO_ENTITY_MAPPING"
)

// Header carries the fields common to every event regardless of Kind.
type Header struct {
	EventID   string
	Kind      Kind
	Timestamp time.Time
	HashCode  int32
}

// ZeroEventID is the sentinel a Reader Node's watermark holds before it has
// applied a single event: "every event in the cache or persistent store is
// newer than this." It is distinct from the empty string only for callers
// that serialize the watermark onto the wire and expect a well-formed UUID
// shape back.
const ZeroEventID = "00000000-0000-0000-0000-000000000000"

// Event is the tagged union of all mutation payloads. Exactly one of the
// payload fields is populated, selected by Header.Kind; callers dispatch on
// Kind rather than type-asserting a payload interface.
type Event struct {
	Header Header

	User  string
	Group string

	UserToGroupUser  string
	UserToGroupGroup string

	GroupToGroupFrom string
	GroupToGroupTo   string

	ApplicationComponent string
	AccessLevel          string

	EntityType string
	Entity     string

	UserToEntityUser string
	GroupToEntityGroup string
}

// New constructs an Event with a fresh Header; EventID, Timestamp and
// HashCode are filled in by the Writer Node (§4.E) at append time, not here,
// so that construction stays a pure, side-effect-free helper.
func New(kind Kind) Event {
	return Event{Header: Header{Kind: kind}}
}

// AddUser builds an ADD_USER event.
func AddUser(user string) Event {
	e := New(KindAddUser)
	e.User = user
	return e
}

// RemoveUser builds a REMOVE_USER event.
func RemoveUser(user string) Event {
	e := New(KindRemoveUser)
	e.User = user
	return e
}

// AddGroup builds an ADD_GROUP event.
func AddGroup(group string) Event {
	e := New(KindAddGroup)
	e.Group = group
	return e
}

// RemoveGroup builds a REMOVE_GROUP event.
func RemoveGroup(group string) Event {
	e := New(KindRemoveGroup)
	e.Group = group
	return e
}

// AddUserToGroupMapping builds an ADD_USER_TO_GROUP_MAPPING event.
func AddUserToGroupMapping(user, group string) Event {
	e := New(KindAddUserToGroupMapping)
	e.UserToGroupUser, e.UserToGroupGroup = user, group
	return e
}

// RemoveUserToGroupMapping builds a REMOVE_USER_TO_GROUP_MAPPING event.
func RemoveUserToGroupMapping(user, group string) Event {
	e := New(KindRemoveUserToGroupMapping)
	e.UserToGroupUser, e.UserToGroupGroup = user, group
	return e
}

// AddGroupToGroupMapping builds an ADD_GROUP_TO_GROUP_MAPPING event.
func AddGroupToGroupMapping(from, to string) Event {
	e := New(KindAddGroupToGroupMapping)
	e.GroupToGroupFrom, e.GroupToGroupTo = from, to
	return e
}

// RemoveGroupToGroupMapping builds a REMOVE_GROUP_TO_GROUP_MAPPING event.
func RemoveGroupToGroupMapping(from, to string) Event {
	e := New(KindRemoveGroupToGroupMapping)
	e.GroupToGroupFrom, e.GroupToGroupTo = from, to
	return e
}

// AddUserToApplicationComponentAndAccessLevelMapping builds the
// corresponding ADD event.
func AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) Event {
	e := New(KindAddUserToApplicationComponentAndAccessLevelMapping)
	e.User, e.ApplicationComponent, e.AccessLevel = user, component, accessLevel
	return e
}

// RemoveUserToApplicationComponentAndAccessLevelMapping builds the
// corresponding REMOVE event.
func RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) Event {
	e := New(KindRemoveUserToApplicationComponentAndAccessLevelMapping)
	e.User, e.ApplicationComponent, e.AccessLevel = user, component, accessLevel
	return e
}

// AddGroupToApplicationComponentAndAccessLevelMapping builds the
// corresponding ADD event.
func AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) Event {
	e := New(KindAddGroupToApplicationComponentAndAccessLevelMapping)
	e.Group, e.ApplicationComponent, e.AccessLevel = group, component, accessLevel
	return e
}

// RemoveGroupToApplicationComponentAndAccessLevelMapping builds the
// corresponding REMOVE event.
func RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) Event {
	e := New(KindRemoveGroupToApplicationComponentAndAccessLevelMapping)
	e.Group, e.ApplicationComponent, e.AccessLevel = group, component, accessLevel
	return e
}

// AddEntityType builds an ADD_ENTITY_TYPE event.
func AddEntityType(entityType string) Event {
	e := New(KindAddEntityType)
	e.EntityType = entityType
	return e
}

// RemoveEntityType builds a REMOVE_ENTITY_TYPE event.
func RemoveEntityType(entityType string) Event {
	e := New(KindRemoveEntityType)
	e.EntityType = entityType
	return e
}

// AddEntity builds an ADD_ENTITY event.
func AddEntity(entityType, entity string) Event {
	e := New(KindAddEntity)
	e.EntityType, e.Entity = entityType, entity
	return e
}

// RemoveEntity builds a REMOVE_ENTITY event.
func RemoveEntity(entityType, entity string) Event {
	e := New(KindRemoveEntity)
	e.EntityType, e.Entity = entityType, entity
	return e
}

// AddUserToEntityMapping builds an ADD_USER_TO_ENTITY_MAPPING event.
func AddUserToEntityMapping(user, entityType, entity string) Event {
	e := New(KindAddUserToEntityMapping)
	e.UserToEntityUser, e.EntityType, e.Entity = user, entityType, entity
	return e
}

// RemoveUserToEntityMapping builds a REMOVE_USER_TO_ENTITY_MAPPING event.
func RemoveUserToEntityMapping(user, entityType, entity string) Event {
	e := New(KindRemoveUserToEntityMapping)
	e.UserToEntityUser, e.EntityType, e.Entity = user, entityType, entity
	return e
}

// AddGroupToEntityMapping builds an ADD_GROUP_TO_ENTITY_MAPPING event.
func AddGroupToEntityMapping(group, entityType, entity string) Event {
	e := New(KindAddGroupToEntityMapping)
	e.GroupToEntityGroup, e.EntityType, e.Entity = group, entityType, entity
	return e
}

// RemoveGroupToEntityMapping builds a REMOVE_GROUP_TO_ENTITY_MAPPING event.
func RemoveGroupToEntityMapping(group, entityType, entity string) Event {
	e := New(KindRemoveGroupToEntityMapping)
	e.GroupToEntityGroup, e.EntityType, e.Entity = group, entityType, entity
	return e
}

// Sink is implemented by anything an Access Manager can hand freshly applied
// events to after a mutation succeeds, without that Access Manager knowing
// whether the sink is an EventBuffer, a test spy, or nothing at all. This
// breaks the natural cyclic reference between the mutation path and the
// buffer that holds events for that same path (§9 design note): the Access
// Manager depends only on this interface, and the Writer Node supplies the
// concrete EventBuffer at construction time.
type Sink interface {
	Append(e Event) error
}

// NopSink discards every event; used by DependencyFreeAccessManager replicas
// and tests that only care about mutation side effects, not the resulting
// stream.
type NopSink struct{}

// Append implements Sink by discarding e.
func (NopSink) Append(Event) error { return nil }
