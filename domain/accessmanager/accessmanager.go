// Package accessmanager implements the Access Manager (§4.C): the in-memory
// structure that answers "does user X have access to application component
// Y" and its variants, backed by a graph.Graph plus three flat mapping
// stores. Grounded on the teacher's domain/core/aggregates/graph.go
// aggregate pattern (mutate-then-emit, trusted Load path for replica
// reconstruction) but restructured around the four independent mapping
// concerns §4.C actually needs rather than a single homogeneous node/edge
// aggregate.
package accessmanager

import (
	"fmt"
	"sync"

	"applicationaccess/domain/concurrency"
	"applicationaccess/domain/events"
	"applicationaccess/domain/graph"
	"applicationaccess/pkg/accesserrors"
)

// componentAccessKey identifies a (component, accessLevel) pair in the flat
// user/group -> component+level mapping stores.
type componentAccessKey struct {
	Component   string
	AccessLevel string
}

// entityKey identifies a (entityType, entity) pair in the flat user/group ->
// entity mapping stores.
type entityKey struct {
	EntityType string
	Entity     string
}

// AccessManager is the in-memory authorization structure for one shard (or,
// in unsharded deployments, the whole graph). It is safe for concurrent use.
type AccessManager struct {
	locks *concurrency.LockManager
	sink  events.Sink

	g *graph.Graph

	userComponents  map[string]map[componentAccessKey]struct{}
	groupComponents map[string]map[componentAccessKey]struct{}

	userEntities  map[string]map[entityKey]struct{}
	groupEntities map[string]map[entityKey]struct{}

	entityTypes map[string]map[string]struct{} // entityType -> set of entity

	dependencyFree bool

	mu sync.RWMutex // guards the four maps above; graph has its own locking
}

// Option configures an AccessManager at construction time.
type Option func(*AccessManager)

// WithSink overrides the event sink events are appended to after a
// successful mutation. The zero value is events.NopSink{}.
func WithSink(sink events.Sink) Option {
	return func(am *AccessManager) { am.sink = sink }
}

// WithBidirectional controls whether the underlying graph maintains reverse
// edge indexes, required for reverse queries (GetUsersForApplicationComponent
// and friends). Defaults to true.
func WithBidirectional(bidirectional bool) Option {
	return func(am *AccessManager) { am.g = graph.New(bidirectional) }
}

// New constructs an empty AccessManager.
func New(opts ...Option) *AccessManager {
	am := &AccessManager{
		locks:           concurrency.New(),
		sink:            events.NopSink{},
		g:               graph.New(true),
		userComponents:  make(map[string]map[componentAccessKey]struct{}),
		groupComponents: make(map[string]map[componentAccessKey]struct{}),
		userEntities:    make(map[string]map[entityKey]struct{}),
		groupEntities:   make(map[string]map[entityKey]struct{}),
		entityTypes:     make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(am)
	}
	return am
}

// DependencyFree returns an AccessManager configured for the
// "dependency-free" operating mode (§4.C): a mutation that references a
// group that does not yet exist adds that group and emits its ADD_GROUP
// event first instead of failing with NotFound. A missing entity type (and,
// for entity mappings, a missing entity) is registered without an event of
// its own; no ADD_ENTITY_TYPE or ADD_ENTITY event is emitted for it. Adding
// a group that already exists is a no-op; other duplicate additions still
// fail with AlreadyExists, and cycle checks still apply.
func DependencyFree(opts ...Option) *AccessManager {
	am := New(opts...)
	am.dependencyFree = true
	return am
}

// emit stamps e with header before handing it to the sink. header is either
// the zero-Kind-only Header a direct method call builds for itself, or the
// Header a Writer Node already stamped with a real EventID/Timestamp/HashCode
// and Apply is threading through unmodified - emit never generates its own
// identity, so a replayed event keeps the identity it arrived with.
func (am *AccessManager) emit(header events.Header, e events.Event) error {
	e.Header = header
	return am.sink.Append(e)
}

// --- Users / Groups -------------------------------------------------------

// AddUser adds a user vertex.
func (am *AccessManager) AddUser(user string) error {
	return am.addUser(events.Header{Kind: events.KindAddUser}, user)
}

func (am *AccessManager) addUser(header events.Header, user string) error {
	release := am.locks.ObjectAndDependencies(concurrency.LeafVertices)
	defer release()
	if err := am.g.AddLeafVertex(user); err != nil {
		return err
	}
	return am.emit(header, events.AddUser(user))
}

// ContainsUser reports whether user exists.
func (am *AccessManager) ContainsUser(user string) bool {
	release := am.locks.ReadLock(concurrency.LeafVertices)
	defer release()
	return am.g.ContainsLeafVertex(user)
}

// RemoveUser removes a user and every mapping referencing it.
func (am *AccessManager) RemoveUser(user string) error {
	return am.removeUser(events.Header{Kind: events.KindRemoveUser}, user)
}

func (am *AccessManager) removeUser(header events.Header, user string) error {
	release := am.locks.ObjectAndDependents(concurrency.LeafVertices)
	defer release()
	if err := am.g.RemoveLeafVertex(user); err != nil {
		return err
	}
	am.mu.Lock()
	delete(am.userComponents, user)
	delete(am.userEntities, user)
	am.mu.Unlock()
	return am.emit(header, events.RemoveUser(user))
}

// AddGroup adds a group vertex.
func (am *AccessManager) AddGroup(group string) error {
	return am.addGroup(events.Header{Kind: events.KindAddGroup}, group)
}

func (am *AccessManager) addGroup(header events.Header, group string) error {
	release := am.locks.ObjectAndDependencies(concurrency.NonLeafVertices)
	defer release()
	if err := am.g.AddNonLeafVertex(group); err != nil {
		if am.dependencyFree && accesserrors.Is(err, accesserrors.KindAlreadyExists) {
			return nil
		}
		return err
	}
	return am.emit(header, events.AddGroup(group))
}

// ContainsGroup reports whether group exists.
func (am *AccessManager) ContainsGroup(group string) bool {
	release := am.locks.ReadLock(concurrency.NonLeafVertices)
	defer release()
	return am.g.ContainsNonLeafVertex(group)
}

// RemoveGroup removes a group and every mapping referencing it.
func (am *AccessManager) RemoveGroup(group string) error {
	return am.removeGroup(events.Header{Kind: events.KindRemoveGroup}, group)
}

func (am *AccessManager) removeGroup(header events.Header, group string) error {
	release := am.locks.ObjectAndDependents(concurrency.NonLeafVertices)
	defer release()
	if err := am.g.RemoveNonLeafVertex(group); err != nil {
		return err
	}
	am.mu.Lock()
	delete(am.groupComponents, group)
	delete(am.groupEntities, group)
	am.mu.Unlock()
	return am.emit(header, events.RemoveGroup(group))
}

// ensureGroup synthesizes a group in dependency-free mode. The synthesized
// ADD_GROUP event is not the caller's event - it has no prior Header to
// thread through - so it always carries its own fresh, unstamped Header,
// same as before this event's Header threading was added.
func (am *AccessManager) ensureGroup(group string) error {
	if am.g.ContainsNonLeafVertex(group) {
		return nil
	}
	if !am.dependencyFree {
		return accesserrors.NotFound("group", group)
	}
	if err := am.g.AddNonLeafVertex(group); err != nil {
		return err
	}
	return am.emit(events.Header{Kind: events.KindAddGroup}, events.AddGroup(group))
}

// --- User/Group -> Group mappings -----------------------------------------

// AddUserToGroupMapping maps user as a member of group.
func (am *AccessManager) AddUserToGroupMapping(user, group string) error {
	return am.addUserToGroupMapping(events.Header{Kind: events.KindAddUserToGroupMapping}, user, group)
}

func (am *AccessManager) addUserToGroupMapping(header events.Header, user, group string) error {
	release := am.locks.ObjectAndDependencies(concurrency.LeafToNonLeafEdges)
	defer release()
	if am.dependencyFree {
		if err := am.ensureGroup(group); err != nil {
			return err
		}
	}
	if err := am.g.AddLeafToNonLeafEdge(user, group); err != nil {
		return err
	}
	return am.emit(header, events.AddUserToGroupMapping(user, group))
}

// RemoveUserToGroupMapping removes the mapping.
func (am *AccessManager) RemoveUserToGroupMapping(user, group string) error {
	return am.removeUserToGroupMapping(events.Header{Kind: events.KindRemoveUserToGroupMapping}, user, group)
}

func (am *AccessManager) removeUserToGroupMapping(header events.Header, user, group string) error {
	release := am.locks.ObjectAndDependents(concurrency.LeafToNonLeafEdges)
	defer release()
	if err := am.g.RemoveLeafToNonLeafEdge(user, group); err != nil {
		return err
	}
	return am.emit(header, events.RemoveUserToGroupMapping(user, group))
}

// AddGroupToGroupMapping maps `from` as a member of `to`. Returns
// WouldCreateCycle if this would close a cycle in the group subgraph.
func (am *AccessManager) AddGroupToGroupMapping(from, to string) error {
	return am.addGroupToGroupMapping(events.Header{Kind: events.KindAddGroupToGroupMapping}, from, to)
}

func (am *AccessManager) addGroupToGroupMapping(header events.Header, from, to string) error {
	release := am.locks.ObjectAndDependencies(concurrency.NonLeafToNonLeafEdges)
	defer release()
	if am.dependencyFree {
		if err := am.ensureGroup(from); err != nil {
			return err
		}
		if err := am.ensureGroup(to); err != nil {
			return err
		}
	}
	if err := am.g.AddNonLeafToNonLeafEdge(from, to); err != nil {
		return err
	}
	return am.emit(header, events.AddGroupToGroupMapping(from, to))
}

// RemoveGroupToGroupMapping removes the mapping.
func (am *AccessManager) RemoveGroupToGroupMapping(from, to string) error {
	return am.removeGroupToGroupMapping(events.Header{Kind: events.KindRemoveGroupToGroupMapping}, from, to)
}

func (am *AccessManager) removeGroupToGroupMapping(header events.Header, from, to string) error {
	release := am.locks.ObjectAndDependents(concurrency.NonLeafToNonLeafEdges)
	defer release()
	if err := am.g.RemoveNonLeafToNonLeafEdge(from, to); err != nil {
		return err
	}
	return am.emit(header, events.RemoveGroupToGroupMapping(from, to))
}

// --- User/Group -> (component, accessLevel) mappings -----------------------

// AddUserToApplicationComponentAndAccessLevelMapping grants user direct
// access to component at accessLevel.
func (am *AccessManager) AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	return am.addUserToApplicationComponentAndAccessLevelMapping(events.Header{Kind: events.KindAddUserToApplicationComponentAndAccessLevelMapping}, user, component, accessLevel)
}

func (am *AccessManager) addUserToApplicationComponentAndAccessLevelMapping(header events.Header, user, component, accessLevel string) error {
	if !am.ContainsUser(user) {
		return accesserrors.NotFound("user", user)
	}
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	am.mu.Lock()
	if am.userComponents[user] == nil {
		am.userComponents[user] = make(map[componentAccessKey]struct{})
	}
	if _, ok := am.userComponents[user][key]; ok {
		am.mu.Unlock()
		return accesserrors.AlreadyExists("userToApplicationComponentAndAccessLevelMapping", fmt.Sprintf("%s/%s/%s", user, component, accessLevel))
	}
	am.userComponents[user][key] = struct{}{}
	am.mu.Unlock()
	return am.emit(header, events.AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel))
}

// RemoveUserToApplicationComponentAndAccessLevelMapping revokes the mapping.
func (am *AccessManager) RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	return am.removeUserToApplicationComponentAndAccessLevelMapping(events.Header{Kind: events.KindRemoveUserToApplicationComponentAndAccessLevelMapping}, user, component, accessLevel)
}

func (am *AccessManager) removeUserToApplicationComponentAndAccessLevelMapping(header events.Header, user, component, accessLevel string) error {
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	am.mu.Lock()
	if _, ok := am.userComponents[user][key]; !ok {
		am.mu.Unlock()
		return accesserrors.NotFound("userToApplicationComponentAndAccessLevelMapping", fmt.Sprintf("%s/%s/%s", user, component, accessLevel))
	}
	delete(am.userComponents[user], key)
	am.mu.Unlock()
	return am.emit(header, events.RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel))
}

// AddGroupToApplicationComponentAndAccessLevelMapping grants group direct
// access to component at accessLevel.
func (am *AccessManager) AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	return am.addGroupToApplicationComponentAndAccessLevelMapping(events.Header{Kind: events.KindAddGroupToApplicationComponentAndAccessLevelMapping}, group, component, accessLevel)
}

func (am *AccessManager) addGroupToApplicationComponentAndAccessLevelMapping(header events.Header, group, component, accessLevel string) error {
	if am.dependencyFree {
		if err := am.ensureGroup(group); err != nil {
			return err
		}
	} else if !am.ContainsGroup(group) {
		return accesserrors.NotFound("group", group)
	}
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	am.mu.Lock()
	if am.groupComponents[group] == nil {
		am.groupComponents[group] = make(map[componentAccessKey]struct{})
	}
	if _, ok := am.groupComponents[group][key]; ok {
		am.mu.Unlock()
		return accesserrors.AlreadyExists("groupToApplicationComponentAndAccessLevelMapping", fmt.Sprintf("%s/%s/%s", group, component, accessLevel))
	}
	am.groupComponents[group][key] = struct{}{}
	am.mu.Unlock()
	return am.emit(header, events.AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel))
}

// RemoveGroupToApplicationComponentAndAccessLevelMapping revokes the mapping.
func (am *AccessManager) RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	return am.removeGroupToApplicationComponentAndAccessLevelMapping(events.Header{Kind: events.KindRemoveGroupToApplicationComponentAndAccessLevelMapping}, group, component, accessLevel)
}

func (am *AccessManager) removeGroupToApplicationComponentAndAccessLevelMapping(header events.Header, group, component, accessLevel string) error {
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	am.mu.Lock()
	if _, ok := am.groupComponents[group][key]; !ok {
		am.mu.Unlock()
		return accesserrors.NotFound("groupToApplicationComponentAndAccessLevelMapping", fmt.Sprintf("%s/%s/%s", group, component, accessLevel))
	}
	delete(am.groupComponents[group], key)
	am.mu.Unlock()
	return am.emit(header, events.RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel))
}

// --- Entity types / entities -----------------------------------------------

// AddEntityType registers a new entity type.
func (am *AccessManager) AddEntityType(entityType string) error {
	return am.addEntityType(events.Header{Kind: events.KindAddEntityType}, entityType)
}

func (am *AccessManager) addEntityType(header events.Header, entityType string) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.entityTypes[entityType]; ok {
		return accesserrors.AlreadyExists("entityType", entityType)
	}
	am.entityTypes[entityType] = make(map[string]struct{})
	return am.emit(header, events.AddEntityType(entityType))
}

// ContainsEntityType reports whether entityType is registered.
func (am *AccessManager) ContainsEntityType(entityType string) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	_, ok := am.entityTypes[entityType]
	return ok
}

// RemoveEntityType removes an entity type and every entity, and every
// user/group mapping, under it.
func (am *AccessManager) RemoveEntityType(entityType string) error {
	return am.removeEntityType(events.Header{Kind: events.KindRemoveEntityType}, entityType)
}

func (am *AccessManager) removeEntityType(header events.Header, entityType string) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.entityTypes[entityType]; !ok {
		return accesserrors.NotFound("entityType", entityType)
	}
	delete(am.entityTypes, entityType)
	for user, ents := range am.userEntities {
		for k := range ents {
			if k.EntityType == entityType {
				delete(ents, k)
			}
		}
		if len(ents) == 0 {
			delete(am.userEntities, user)
		}
	}
	for group, ents := range am.groupEntities {
		for k := range ents {
			if k.EntityType == entityType {
				delete(ents, k)
			}
		}
		if len(ents) == 0 {
			delete(am.groupEntities, group)
		}
	}
	return am.emit(header, events.RemoveEntityType(entityType))
}

func (am *AccessManager) ensureEntityType(entityType string) {
	if am.entityTypes[entityType] == nil {
		am.entityTypes[entityType] = make(map[string]struct{})
	}
}

// AddEntity registers entity under entityType.
func (am *AccessManager) AddEntity(entityType, entity string) error {
	return am.addEntity(events.Header{Kind: events.KindAddEntity}, entityType, entity)
}

func (am *AccessManager) addEntity(header events.Header, entityType, entity string) error {
	am.mu.Lock()
	if am.dependencyFree {
		am.ensureEntityType(entityType)
	} else if _, ok := am.entityTypes[entityType]; !ok {
		am.mu.Unlock()
		return accesserrors.NotFound("entityType", entityType)
	}
	if _, ok := am.entityTypes[entityType][entity]; ok {
		am.mu.Unlock()
		return accesserrors.AlreadyExists("entity", entity)
	}
	am.entityTypes[entityType][entity] = struct{}{}
	am.mu.Unlock()
	return am.emit(header, events.AddEntity(entityType, entity))
}

// ContainsEntity reports whether entity exists under entityType.
func (am *AccessManager) ContainsEntity(entityType, entity string) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	_, ok := am.entityTypes[entityType][entity]
	return ok
}

// RemoveEntity removes entity and every user/group mapping to it.
func (am *AccessManager) RemoveEntity(entityType, entity string) error {
	return am.removeEntity(events.Header{Kind: events.KindRemoveEntity}, entityType, entity)
}

func (am *AccessManager) removeEntity(header events.Header, entityType, entity string) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.entityTypes[entityType][entity]; !ok {
		return accesserrors.NotFound("entity", entity)
	}
	delete(am.entityTypes[entityType], entity)
	key := entityKey{EntityType: entityType, Entity: entity}
	for _, ents := range am.userEntities {
		delete(ents, key)
	}
	for _, ents := range am.groupEntities {
		delete(ents, key)
	}
	return am.emit(header, events.RemoveEntity(entityType, entity))
}

// AddUserToEntityMapping grants user direct access to entity.
func (am *AccessManager) AddUserToEntityMapping(user, entityType, entity string) error {
	return am.addUserToEntityMapping(events.Header{Kind: events.KindAddUserToEntityMapping}, user, entityType, entity)
}

func (am *AccessManager) addUserToEntityMapping(header events.Header, user, entityType, entity string) error {
	if !am.ContainsUser(user) {
		return accesserrors.NotFound("user", user)
	}
	am.mu.Lock()
	if am.dependencyFree {
		am.ensureEntityType(entityType)
		am.entityTypes[entityType][entity] = struct{}{}
	}
	key := entityKey{EntityType: entityType, Entity: entity}
	if am.userEntities[user] == nil {
		am.userEntities[user] = make(map[entityKey]struct{})
	}
	if _, ok := am.userEntities[user][key]; ok {
		am.mu.Unlock()
		return accesserrors.AlreadyExists("userToEntityMapping", fmt.Sprintf("%s/%s/%s", user, entityType, entity))
	}
	am.userEntities[user][key] = struct{}{}
	am.mu.Unlock()
	return am.emit(header, events.AddUserToEntityMapping(user, entityType, entity))
}

// RemoveUserToEntityMapping revokes the mapping.
func (am *AccessManager) RemoveUserToEntityMapping(user, entityType, entity string) error {
	return am.removeUserToEntityMapping(events.Header{Kind: events.KindRemoveUserToEntityMapping}, user, entityType, entity)
}

func (am *AccessManager) removeUserToEntityMapping(header events.Header, user, entityType, entity string) error {
	key := entityKey{EntityType: entityType, Entity: entity}
	am.mu.Lock()
	if _, ok := am.userEntities[user][key]; !ok {
		am.mu.Unlock()
		return accesserrors.NotFound("userToEntityMapping", fmt.Sprintf("%s/%s/%s", user, entityType, entity))
	}
	delete(am.userEntities[user], key)
	am.mu.Unlock()
	return am.emit(header, events.RemoveUserToEntityMapping(user, entityType, entity))
}

// AddGroupToEntityMapping grants group direct access to entity.
func (am *AccessManager) AddGroupToEntityMapping(group, entityType, entity string) error {
	return am.addGroupToEntityMapping(events.Header{Kind: events.KindAddGroupToEntityMapping}, group, entityType, entity)
}

func (am *AccessManager) addGroupToEntityMapping(header events.Header, group, entityType, entity string) error {
	if am.dependencyFree {
		if err := am.ensureGroup(group); err != nil {
			return err
		}
	} else if !am.ContainsGroup(group) {
		return accesserrors.NotFound("group", group)
	}
	am.mu.Lock()
	if am.dependencyFree {
		am.ensureEntityType(entityType)
		am.entityTypes[entityType][entity] = struct{}{}
	}
	key := entityKey{EntityType: entityType, Entity: entity}
	if am.groupEntities[group] == nil {
		am.groupEntities[group] = make(map[entityKey]struct{})
	}
	if _, ok := am.groupEntities[group][key]; ok {
		am.mu.Unlock()
		return accesserrors.AlreadyExists("groupToEntityMapping", fmt.Sprintf("%s/%s/%s", group, entityType, entity))
	}
	am.groupEntities[group][key] = struct{}{}
	am.mu.Unlock()
	return am.emit(header, events.AddGroupToEntityMapping(group, entityType, entity))
}

// RemoveGroupToEntityMapping revokes the mapping.
func (am *AccessManager) RemoveGroupToEntityMapping(group, entityType, entity string) error {
	return am.removeGroupToEntityMapping(events.Header{Kind: events.KindRemoveGroupToEntityMapping}, group, entityType, entity)
}

func (am *AccessManager) removeGroupToEntityMapping(header events.Header, group, entityType, entity string) error {
	key := entityKey{EntityType: entityType, Entity: entity}
	am.mu.Lock()
	if _, ok := am.groupEntities[group][key]; !ok {
		am.mu.Unlock()
		return accesserrors.NotFound("groupToEntityMapping", fmt.Sprintf("%s/%s/%s", group, entityType, entity))
	}
	delete(am.groupEntities[group], key)
	am.mu.Unlock()
	return am.emit(header, events.RemoveGroupToEntityMapping(group, entityType, entity))
}

// --- Queries ----------------------------------------------------------------

// groupsForUser returns the groups user directly belongs to, plus (if
// includeIndirect) every group transitively reachable from there.
func (am *AccessManager) groupsForUser(user string, includeIndirect bool) []string {
	direct := am.g.GetLeafEdges(user)
	if !includeIndirect {
		return direct
	}
	all := append([]string{}, direct...)
	all = append(all, am.g.TraverseTransitiveClosure(direct, graph.Forward)...)
	return all
}

// GetGroupsForUser returns the groups user directly belongs to, plus (if
// includeIndirect) every group transitively reachable from there. Exported
// so a shard Router fronting this AccessManager (§4.H) can seed a
// cross-shard group-membership expansion from the user's own shard without
// reaching for a query that was never meant to return group names.
func (am *AccessManager) GetGroupsForUser(user string, includeIndirect bool) []string {
	return am.groupsForUser(user, includeIndirect)
}

// HasAccessToApplicationComponent reports whether user has access to
// component at accessLevel, directly or (if includeIndirect) through group
// membership.
func (am *AccessManager) HasAccessToApplicationComponent(user, component, accessLevel string, includeIndirect bool) bool {
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	am.mu.RLock()
	if _, ok := am.userComponents[user][key]; ok {
		am.mu.RUnlock()
		return true
	}
	am.mu.RUnlock()

	for _, group := range am.groupsForUser(user, includeIndirect) {
		am.mu.RLock()
		_, ok := am.groupComponents[group][key]
		am.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// HasAccessToEntity reports whether user has access to entity under
// entityType, directly or (if includeIndirect) through group membership.
func (am *AccessManager) HasAccessToEntity(user, entityType, entity string, includeIndirect bool) bool {
	key := entityKey{EntityType: entityType, Entity: entity}
	am.mu.RLock()
	if _, ok := am.userEntities[user][key]; ok {
		am.mu.RUnlock()
		return true
	}
	am.mu.RUnlock()

	for _, group := range am.groupsForUser(user, includeIndirect) {
		am.mu.RLock()
		_, ok := am.groupEntities[group][key]
		am.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// ApplicationComponentAccess pairs a component with the access level
// granted to it, as returned by the accessible-components queries.
type ApplicationComponentAccess struct {
	Component   string
	AccessLevel string
}

// GetApplicationComponentsAccessibleByUser returns every (component,
// accessLevel) pair user has access to, directly or (if includeIndirect)
// through group membership.
func (am *AccessManager) GetApplicationComponentsAccessibleByUser(user string, includeIndirect bool) []ApplicationComponentAccess {
	seen := make(map[componentAccessKey]struct{})
	var out []ApplicationComponentAccess
	add := func(set map[componentAccessKey]struct{}) {
		for k := range set {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, ApplicationComponentAccess{Component: k.Component, AccessLevel: k.AccessLevel})
		}
	}
	am.mu.RLock()
	add(am.userComponents[user])
	am.mu.RUnlock()
	for _, group := range am.groupsForUser(user, includeIndirect) {
		am.mu.RLock()
		add(am.groupComponents[group])
		am.mu.RUnlock()
	}
	return out
}

// EntityAccess pairs an entity type with an entity id accessible under it.
type EntityAccess struct {
	EntityType string
	Entity     string
}

// GetEntitiesAccessibleByUser returns every entity user has access to,
// directly or (if includeIndirect) through group membership.
func (am *AccessManager) GetEntitiesAccessibleByUser(user string, includeIndirect bool) []EntityAccess {
	seen := make(map[entityKey]struct{})
	var out []EntityAccess
	add := func(set map[entityKey]struct{}) {
		for k := range set {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, EntityAccess{EntityType: k.EntityType, Entity: k.Entity})
		}
	}
	am.mu.RLock()
	add(am.userEntities[user])
	am.mu.RUnlock()
	for _, group := range am.groupsForUser(user, includeIndirect) {
		am.mu.RLock()
		add(am.groupEntities[group])
		am.mu.RUnlock()
	}
	return out
}

// GetUsersForApplicationComponent returns every user with direct or (if
// includeIndirect) indirect access to component at accessLevel. Requires
// the graph's reverse indexes, i.e. WithBidirectional(true) (the default).
func (am *AccessManager) GetUsersForApplicationComponent(component, accessLevel string, includeIndirect bool) []string {
	key := componentAccessKey{Component: component, AccessLevel: accessLevel}
	var out []string
	am.mu.RLock()
	for user, set := range am.userComponents {
		if _, ok := set[key]; ok {
			out = append(out, user)
		}
	}
	var directGroups []string
	for group, set := range am.groupComponents {
		if _, ok := set[key]; ok {
			directGroups = append(directGroups, group)
		}
	}
	am.mu.RUnlock()

	groups := directGroups
	if includeIndirect {
		groups = append(groups, am.g.TraverseTransitiveClosure(directGroups, graph.Reverse)...)
	}
	for _, group := range groups {
		out = append(out, am.g.GetLeavesForNonLeaf(group)...)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
