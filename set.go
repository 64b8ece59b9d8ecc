package cavl

import "cmp"

// Set is a concurrent ordered set of K values, implemented as a
// lock-coupled AVL tree threaded with a doubly-linked predecessor/
// successor chain in key order (spec.md §1-§3). The zero value is not
// usable; construct one with New. Every method is safe for concurrent use
// by any number of goroutines; Contains never blocks.
type Set[K cmp.Ordered] struct {
	negInf *node[K]
	root   *node[K] // the permanent +∞ sentinel; a rotation never replaces it
}

// New builds an empty Set: the two permanent sentinels, wired together as
// described in spec.md §3. +∞ is the tree root with -∞ as its left child;
// -∞'s succ initially points directly to +∞.
func New[K cmp.Ordered]() *Set[K] {
	neg := newNode[K](negInfBound[K]())
	pos := newNode[K](posInfBound[K]())

	neg.parent.Store(pos)
	neg.succ.Store(pos)

	pos.left.Store(neg)
	pos.parent.Store(pos)
	pos.pred.Store(neg)
	pos.leftHeight = 1

	return &Set[K]{negInf: neg, root: pos}
}

// Snapshot walks the ordered chain from -∞ to +∞ without taking any lock
// and returns the valid keys it observed, in ascending order. It exists
// so tests can compare the set's state against an oracle (spec.md §8);
// it makes no atomicity claim against concurrent mutation, and is not a
// substitute for the range-query / iteration-snapshot guarantees spec.md
// explicitly excludes (§1 Non-goals).
func (s *Set[K]) Snapshot() []K {
	var out []K
	for n := s.negInf.succ.Load(); n != s.root; n = n.succ.Load() {
		if n.valid.Load() {
			out = append(out, n.bnd.key)
		}
	}
	return out
}

// Height returns the cached height of the real tree: the subtree rooted
// at the +∞ sentinel's left child. Used by tests asserting AVL balance
// (spec.md §8 scenario 3).
func (s *Set[K]) Height() int {
	return s.root.leftHeight
}

// RootKey returns the key at the top of the real subtree, for scenario
// tests that assert on a specific root key (spec.md §8 scenarios 2-3).
// ok is false when the node at the top is the -∞ sentinel, which is the
// case for an empty set and also for some non-empty ones (a set holding a
// single key, for example).
func (s *Set[K]) RootKey() (key K, ok bool) {
	top := s.root.left.Load()
	if top == nil || top == s.negInf {
		var zero K
		return zero, false
	}
	return top.bnd.key, true
}
