package cavl

import (
	"cmp"
	"runtime"
)

// rebalance restores the AVL property along the path from node up to the
// root sentinel, after the subtree anchored at child (on node's isLeft
// side) was just structurally modified. Callers hold node.treeLock on
// entry, and child.treeLock too whenever child is non-nil; rebalance
// releases every tree lock it acquires, including both of the caller's,
// before it returns. See spec.md §4.5.
func (s *Set[K]) rebalance(node, child *node[K], isLeft bool, owner ticket) {
	for {
		updateCachedHeight(node, child, isLeft)

		if node == s.root {
			// The +∞ sentinel isn't a real AVL node: its "balance factor"
			// is meaningless (its right side is never used), so the climb
			// stops here once its height bookkeeping is current.
			if child != nil {
				child.treeLock.unlock()
			}
			node.treeLock.unlock()
			return
		}

		bf := node.balanceFactor()
		if abs(bf) < 2 {
			if child != nil {
				child.treeLock.unlock()
			}
			parent := lockParent(node, owner)
			isLeft = parent.childSide(node)
			child, node = node, parent
			continue
		}

		heavyLeft := bf < 0
		if child == nil || isLeft != heavyLeft {
			if child != nil {
				child.treeLock.unlock()
			}
			child = restart(node, heavyLeft, owner)
			if child == nil {
				// Someone else already repaired node (or it's no longer
				// valid): this rebalance round is done.
				node.treeLock.unlock()
				return
			}
			isLeft = heavyLeft
		}

		if cbf := child.balanceFactor(); cbf != 0 && sign(cbf) != sign(bf) {
			// Double-rotation case: child leans the opposite way from
			// node, so rotate child around its own heavy child first.
			grandLeft := cbf < 0
			grand := tryLockSide(child, grandLeft, owner)
			if grandLeft {
				rotateRight(node, child)
			} else {
				rotateLeft(node, child)
			}
			child.treeLock.unlock()
			child = grand
		}

		parent := lockParent(node, owner)
		if isLeft {
			rotateRight(parent, node)
		} else {
			rotateLeft(parent, node)
		}
		node.treeLock.unlock()

		// child (the subtree root the rotation just promoted) is still
		// locked; continue the retrace treating parent as the next node
		// to examine.
		isLeft = parent.childSide(child)
		node = parent
	}
}

// updateCachedHeight refreshes node's cached height on the isLeft side
// from child's own height (0 if child is nil, i.e. the subtree on that
// side just became empty).
func updateCachedHeight[K cmp.Ordered](node, child *node[K], isLeft bool) {
	h := child.height()
	if isLeft {
		node.leftHeight = h
	} else {
		node.rightHeight = h
	}
}

// lockParent reads n.parent, locks it, and verifies n.parent still points
// there and the parent is still valid before returning it locked;
// otherwise it releases and retries. This is the hand-over-hand climb
// direction (child locked, then parent), which every climber uses
// consistently, so a plain blocking lock is safe here — the deadlock risk
// is only in the reverse, node-to-child direction (see tryLockSide).
func lockParent[K cmp.Ordered](n *node[K], owner ticket) *node[K] {
	for {
		p := n.parent.Load()
		p.treeLock.lock(owner)
		if n.parent.Load() == p && p.valid.Load() {
			return p
		}
		p.treeLock.unlock()
		runtime.Gosched()
	}
}

// restart re-selects and locks node's current heavy-side child (heavyLeft
// chooses left vs right). It's used whenever the child rebalance is
// carrying isn't the side that needs rotating anymore — either a
// concurrent mutation changed which side is heavy, or a contended
// tryLock on the heavy child had to be abandoned and retried. Returns nil
// if node is no longer imbalanced or no longer valid, signalling the
// caller to abandon this rebalance round: someone else already fixed it.
func restart[K cmp.Ordered](node *node[K], heavyLeft bool, owner ticket) *node[K] {
	for {
		if !node.valid.Load() || abs(node.balanceFactor()) < 2 {
			return nil
		}
		if c := tryLockSide(node, heavyLeft, owner); c != nil {
			return c
		}
		runtime.Gosched()
	}
}

// tryLockSide attempts to lock n's child on the given side, retrying
// with a yield on contention, and re-validating the child is still there
// once the lock is held. This is the downward (node-to-child) direction,
// reversed from the climb's child-to-parent order, so it must back off
// with tryLock rather than block, or it could deadlock against a
// concurrent climber going the other way.
func tryLockSide[K cmp.Ordered](n *node[K], wantLeft bool, owner ticket) *node[K] {
	for {
		var c *node[K]
		if wantLeft {
			c = n.left.Load()
		} else {
			c = n.right.Load()
		}
		if c == nil {
			return nil
		}
		if !c.treeLock.tryLock(owner) {
			runtime.Gosched()
			continue
		}
		var cur *node[K]
		if wantLeft {
			cur = n.left.Load()
		} else {
			cur = n.right.Load()
		}
		if cur == c {
			return c
		}
		c.treeLock.unlock()
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
