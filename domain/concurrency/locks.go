// Package concurrency implements the locking wrapper an Access Manager uses
// to make its graph and mapping mutations safe under concurrent readers and
// writers without serializing unrelated operations behind a single mutex.
// Grounded on the teacher's aggregate-level locking discipline
// (domain/core/aggregates/graph.go guards mutation with a single mutex);
// generalized here into four independently lockable resources plus a
// dependency registry, per §4.B's named-lock model.
package concurrency

import "sync"

// Resource names one of the four independently lockable collections.
type Resource int

const (
	LeafVertices Resource = iota
	NonLeafVertices
	LeafToNonLeafEdges
	NonLeafToNonLeafEdges
	resourceCount
)

// LockManager owns one RWMutex per Resource plus a dependency registry
// recording which resources a given operation must also hold to be safe
// (e.g. adding a leaf-to-non-leaf edge touches both vertex sets as well as
// the edge map itself).
type LockManager struct {
	locks   [resourceCount]*sync.RWMutex
	bypass  bool
	depMu   sync.Mutex
	depends map[Resource][]Resource
}

// New constructs a LockManager with the default dependency graph: an edge
// resource depends on the vertex resources its endpoints live in.
func New() *LockManager {
	lm := &LockManager{
		depends: make(map[Resource][]Resource),
	}
	for i := range lm.locks {
		lm.locks[i] = &sync.RWMutex{}
	}
	lm.depends[LeafToNonLeafEdges] = []Resource{LeafVertices, NonLeafVertices}
	lm.depends[NonLeafToNonLeafEdges] = []Resource{NonLeafVertices}
	return lm
}

// SetBypass disables acquisition entirely; used by trusted bulk-load paths
// (e.g. Load() reconstructing a reader replica from a persistent snapshot)
// that hold exclusive ownership of the Access Manager and do not need
// per-resource locking overhead.
func (lm *LockManager) SetBypass(bypass bool) {
	lm.bypass = bypass
}

// acquireSet acquires the given resources (plus registered dependencies) in
// a fixed, ascending Resource order to prevent deadlock across callers that
// ask for overlapping resource sets in different orders.
func (lm *LockManager) acquireSet(resources []Resource, write bool) func() {
	if lm.bypass {
		return func() {}
	}
	full := lm.expand(resources)
	if write {
		for _, r := range full {
			lm.locks[r].Lock()
		}
		return func() {
			for i := len(full) - 1; i >= 0; i-- {
				lm.locks[full[i]].Unlock()
			}
		}
	}
	for _, r := range full {
		lm.locks[r].RLock()
	}
	return func() {
		for i := len(full) - 1; i >= 0; i-- {
			lm.locks[full[i]].RUnlock()
		}
	}
}

func (lm *LockManager) expand(resources []Resource) []Resource {
	lm.depMu.Lock()
	defer lm.depMu.Unlock()
	seen := make(map[Resource]struct{})
	var out []Resource
	var add func(r Resource)
	add = func(r Resource) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
		for _, dep := range lm.depends[r] {
			add(dep)
		}
	}
	for _, r := range resources {
		add(r)
	}
	sortResources(out)
	return out
}

func sortResources(rs []Resource) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j-1] > rs[j]; j-- {
			rs[j-1], rs[j] = rs[j], rs[j-1]
		}
	}
}

// ObjectAndDependencies acquires write locks on resource and everything it
// depends on, for add-style mutations that must see a consistent view of
// the resources they reference (e.g. adding an edge must hold both
// endpoints' vertex locks so a concurrent vertex removal cannot race it).
func (lm *LockManager) ObjectAndDependencies(resource Resource) func() {
	return lm.acquireSet([]Resource{resource}, true)
}

// ObjectAndDependents acquires write locks on resource and every other
// resource that depends on it, for remove-style mutations that must block
// concurrent operations which assume the removed object still exists (e.g.
// removing a vertex must also lock the edge resources that reference it).
func (lm *LockManager) ObjectAndDependents(resource Resource) func() {
	lm.depMu.Lock()
	dependents := []Resource{resource}
	for r, deps := range lm.depends {
		for _, d := range deps {
			if d == resource {
				dependents = append(dependents, r)
				break
			}
		}
	}
	lm.depMu.Unlock()
	return lm.acquireSet(dependents, true)
}

// ReadLock acquires a read lock on resource and its dependencies, for query
// operations.
func (lm *LockManager) ReadLock(resource Resource) func() {
	return lm.acquireSet([]Resource{resource}, false)
}
