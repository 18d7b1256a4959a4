// Package graph implements the two-tier directed graph underlying the access
// manager: leaf vertices (users) and non-leaf vertices (groups), with edges
// in either tier and across tiers. It is grounded on the teacher's
// domain/core/aggregates/graph.go Graph aggregate, generalized from a single
// homogeneous node/edge map pair into the leaf/non-leaf split spec.md's
// access model requires, and with cycle detection restricted to the
// non-leaf-to-non-leaf subgraph since only group-to-group edges can cycle.
package graph

import "applicationaccess/pkg/accesserrors"

// Direction selects which edge map TraverseTransitiveClosure walks.
type Direction int

const (
	// Forward walks edges in the direction they were added (e.g. group
	// member to group it belongs to, for "what do I have access to").
	Forward Direction = iota
	// Reverse walks edges against the direction they were added (e.g.
	// group to its members, for "who has access to this").
	Reverse
)

// Graph is a directed graph over leaf and non-leaf vertices. The zero value
// is not usable; construct with New.
type Graph struct {
	bidirectional bool

	leafVertices    map[string]struct{}
	nonLeafVertices map[string]struct{}

	// leafToNonLeaf[leaf] is the set of non-leaf vertices that leaf has an
	// outgoing edge to (e.g. user -> group membership).
	leafToNonLeaf map[string]map[string]struct{}
	// nonLeafToLeaf is the reverse index, populated only when bidirectional
	// is true, supporting reverse queries (who is a member of this group).
	nonLeafToLeaf map[string]map[string]struct{}

	// nonLeafToNonLeaf[from] is the set of non-leaf vertices from has an
	// outgoing edge to (e.g. group -> parent group).
	nonLeafToNonLeaf map[string]map[string]struct{}
	// nonLeafFromNonLeaf is the reverse index of nonLeafToNonLeaf, always
	// maintained regardless of bidirectional; reverse transitive-closure
	// traversal walks it (cycle detection walks nonLeafToNonLeaf).
	nonLeafFromNonLeaf map[string]map[string]struct{}
}

// New constructs an empty Graph. When bidirectional is true, reverse leaf/
// non-leaf edge indexes are maintained so reverse queries (e.g. "who can
// access entity X") do not require a full scan.
func New(bidirectional bool) *Graph {
	return &Graph{
		bidirectional:      bidirectional,
		leafVertices:       make(map[string]struct{}),
		nonLeafVertices:    make(map[string]struct{}),
		leafToNonLeaf:      make(map[string]map[string]struct{}),
		nonLeafToLeaf:      make(map[string]map[string]struct{}),
		nonLeafToNonLeaf:   make(map[string]map[string]struct{}),
		nonLeafFromNonLeaf: make(map[string]map[string]struct{}),
	}
}

// AddLeafVertex adds a leaf vertex (user). Returns AlreadyExists if present.
func (g *Graph) AddLeafVertex(v string) error {
	if _, ok := g.leafVertices[v]; ok {
		return accesserrors.AlreadyExists("user", v)
	}
	g.leafVertices[v] = struct{}{}
	return nil
}

// ContainsLeafVertex reports whether v is a known leaf vertex.
func (g *Graph) ContainsLeafVertex(v string) bool {
	_, ok := g.leafVertices[v]
	return ok
}

// RemoveLeafVertex removes a leaf vertex and all edges touching it. Returns
// NotFound if v is unknown.
func (g *Graph) RemoveLeafVertex(v string) error {
	if !g.ContainsLeafVertex(v) {
		return accesserrors.NotFound("user", v)
	}
	for nl := range g.leafToNonLeaf[v] {
		if set := g.nonLeafToLeaf[nl]; set != nil {
			delete(set, v)
		}
	}
	delete(g.leafToNonLeaf, v)
	delete(g.leafVertices, v)
	return nil
}

// AddNonLeafVertex adds a non-leaf vertex (group). Returns AlreadyExists if
// present.
func (g *Graph) AddNonLeafVertex(v string) error {
	if _, ok := g.nonLeafVertices[v]; ok {
		return accesserrors.AlreadyExists("group", v)
	}
	g.nonLeafVertices[v] = struct{}{}
	return nil
}

// ContainsNonLeafVertex reports whether v is a known non-leaf vertex.
func (g *Graph) ContainsNonLeafVertex(v string) bool {
	_, ok := g.nonLeafVertices[v]
	return ok
}

// RemoveNonLeafVertex removes a non-leaf vertex and all edges touching it in
// any direction (leaf->this, this->other non-leaf, other non-leaf->this).
func (g *Graph) RemoveNonLeafVertex(v string) error {
	if !g.ContainsNonLeafVertex(v) {
		return accesserrors.NotFound("group", v)
	}
	for leaf := range g.nonLeafToLeaf[v] {
		if set := g.leafToNonLeaf[leaf]; set != nil {
			delete(set, v)
		}
	}
	delete(g.nonLeafToLeaf, v)

	for to := range g.nonLeafToNonLeaf[v] {
		if set := g.nonLeafFromNonLeaf[to]; set != nil {
			delete(set, v)
		}
	}
	delete(g.nonLeafToNonLeaf, v)

	for from := range g.nonLeafFromNonLeaf[v] {
		if set := g.nonLeafToNonLeaf[from]; set != nil {
			delete(set, v)
		}
	}
	delete(g.nonLeafFromNonLeaf, v)

	delete(g.nonLeafVertices, v)
	return nil
}

// AddLeafToNonLeafEdge adds an edge from leaf vertex `from` to non-leaf
// vertex `to` (e.g. user -> group). Both endpoints must already exist.
func (g *Graph) AddLeafToNonLeafEdge(from, to string) error {
	if !g.ContainsLeafVertex(from) {
		return accesserrors.NotFound("user", from)
	}
	if !g.ContainsNonLeafVertex(to) {
		return accesserrors.NotFound("group", to)
	}
	if g.leafToNonLeaf[from] == nil {
		g.leafToNonLeaf[from] = make(map[string]struct{})
	}
	g.leafToNonLeaf[from][to] = struct{}{}
	if g.bidirectional {
		if g.nonLeafToLeaf[to] == nil {
			g.nonLeafToLeaf[to] = make(map[string]struct{})
		}
		g.nonLeafToLeaf[to][from] = struct{}{}
	}
	return nil
}

// ContainsLeafToNonLeafEdge reports whether the edge exists.
func (g *Graph) ContainsLeafToNonLeafEdge(from, to string) bool {
	_, ok := g.leafToNonLeaf[from][to]
	return ok
}

// RemoveLeafToNonLeafEdge removes the edge. Returns NotFound if absent.
func (g *Graph) RemoveLeafToNonLeafEdge(from, to string) error {
	if !g.ContainsLeafToNonLeafEdge(from, to) {
		return accesserrors.NotFound("userToGroupMapping", from+"->"+to)
	}
	delete(g.leafToNonLeaf[from], to)
	if g.bidirectional {
		if set := g.nonLeafToLeaf[to]; set != nil {
			delete(set, from)
		}
	}
	return nil
}

// GetLeafEdges returns the non-leaf vertices that `from` has a direct edge
// to.
func (g *Graph) GetLeafEdges(from string) []string {
	return keys(g.leafToNonLeaf[from])
}

// GetLeavesForNonLeaf returns the leaf vertices with a direct edge to `to`.
// Requires the graph to have been constructed with bidirectional=true.
func (g *Graph) GetLeavesForNonLeaf(to string) []string {
	return keys(g.nonLeafToLeaf[to])
}

// AddNonLeafToNonLeafEdge adds a group-to-group edge. Returns
// WouldCreateCycle if adding it would close a cycle in the non-leaf
// subgraph, matching §4.A's invariant that this subgraph stays acyclic.
func (g *Graph) AddNonLeafToNonLeafEdge(from, to string) error {
	if !g.ContainsNonLeafVertex(from) {
		return accesserrors.NotFound("group", from)
	}
	if !g.ContainsNonLeafVertex(to) {
		return accesserrors.NotFound("group", to)
	}
	if from == to || g.HasPath(to, from) {
		return accesserrors.WouldCreateCycle(from, to)
	}
	if g.nonLeafToNonLeaf[from] == nil {
		g.nonLeafToNonLeaf[from] = make(map[string]struct{})
	}
	g.nonLeafToNonLeaf[from][to] = struct{}{}
	if g.nonLeafFromNonLeaf[to] == nil {
		g.nonLeafFromNonLeaf[to] = make(map[string]struct{})
	}
	g.nonLeafFromNonLeaf[to][from] = struct{}{}
	return nil
}

// ContainsNonLeafToNonLeafEdge reports whether the edge exists.
func (g *Graph) ContainsNonLeafToNonLeafEdge(from, to string) bool {
	_, ok := g.nonLeafToNonLeaf[from][to]
	return ok
}

// RemoveNonLeafToNonLeafEdge removes the edge.
func (g *Graph) RemoveNonLeafToNonLeafEdge(from, to string) error {
	if !g.ContainsNonLeafToNonLeafEdge(from, to) {
		return accesserrors.NotFound("groupToGroupMapping", from+"->"+to)
	}
	delete(g.nonLeafToNonLeaf[from], to)
	if set := g.nonLeafFromNonLeaf[to]; set != nil {
		delete(set, from)
	}
	return nil
}

// GetNonLeafEdges returns the non-leaf vertices `from` has a direct edge to.
func (g *Graph) GetNonLeafEdges(from string) []string {
	return keys(g.nonLeafToNonLeaf[from])
}

// GetNonLeafReverseEdges returns the non-leaf vertices with a direct edge to
// `to`.
func (g *Graph) GetNonLeafReverseEdges(to string) []string {
	return keys(g.nonLeafFromNonLeaf[to])
}

// HasPath reports whether a directed path exists from `from` to `to` within
// the non-leaf subgraph, via breadth-first search. Grounded on the teacher's
// Graph.FindPath/dfs pair, generalized to a plain reachability check since
// cycle detection only needs existence, not the path itself.
func (g *Graph) HasPath(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]struct{}{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.nonLeafToNonLeaf[cur] {
			if next == to {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

// TraverseTransitiveClosure walks the non-leaf subgraph starting from the
// non-leaf vertices in start and returns every non-leaf vertex reachable
// from them by repeated edge traversal in the given Direction; the start
// vertices themselves are not included in the result. It
// backs both the forward closure queries (§4.C "accessible by user,
// including indirect") and reverse-mapping scans, implemented once and
// reused by flipping which edge map is walked, per the SPEC_FULL.md
// supplement to §4.A.
func (g *Graph) TraverseTransitiveClosure(start []string, direction Direction) []string {
	edgeMap := g.nonLeafToNonLeaf
	if direction == Reverse {
		edgeMap = g.nonLeafFromNonLeaf
	}
	visited := make(map[string]struct{})
	queue := append([]string{}, start...)
	for _, s := range start {
		visited[s] = struct{}{}
	}
	var result []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edgeMap[cur] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	return result
}

func keys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
