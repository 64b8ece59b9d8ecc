package cavl

import "runtime"

// Insert adds key to the set, returning true if it was not already
// present. It implements the gap-locating, succ-lock-claiming protocol of
// spec.md §4.3: find a candidate landing node with the lock-free search,
// walk to the true predecessor, and take that predecessor's succLock to
// claim the gap before publishing the new node to the chain and handing
// off to the tree for structural linkage and rebalance.
func (s *Set[K]) Insert(key K) bool {
	b := finiteBound(key)
	owner := newTicket()

	for {
		landing := s.search(b)

		var pred *node[K]
		if compareBounds(b, landing.bnd) > 0 {
			pred = landing
		} else {
			pred = landing.pred.Load()
		}

		pred.succLock.lock(owner)

		if !pred.valid.Load() || compareBounds(b, pred.bnd) <= 0 {
			// Someone moved ahead of us, or pred was removed underfoot.
			pred.succLock.unlock()
			runtime.Gosched()
			continue
		}

		succ := pred.succ.Load()
		switch c := compareBounds(b, succ.bnd); {
		case c == 0:
			pred.succLock.unlock()
			return false
		case c > 0:
			// Stale: pred.succ moved past us since we read it.
			pred.succLock.unlock()
			runtime.Gosched()
			continue
		}

		parent, isRight := s.chooseParent(pred, succ, owner)

		newN := newNode[K](b)
		newN.pred.Store(pred)
		newN.succ.Store(succ)

		succ.pred.Store(newN)
		pred.succ.Store(newN)

		pred.succLock.unlock()

		s.insertToTree(parent, newN, isRight, owner)
		return true
	}
}

// chooseParent decides which of pred or succ becomes new's tree parent:
// whichever currently lacks the slot new belongs in (pred's right child,
// or succ's left child). AVL shape guarantees exactly one of the two is
// free whenever pred and succ are adjacent in the chain, so this always
// terminates. The winning node's treeLock is returned held, for
// insertToTree to use when it attaches the new node.
func (s *Set[K]) chooseParent(pred, succ *node[K], owner ticket) (parent *node[K], isRight bool) {
	for {
		pred.treeLock.lock(owner)
		if pred.right.Load() == nil {
			return pred, true
		}
		pred.treeLock.unlock()

		succ.treeLock.lock(owner)
		if succ.left.Load() == nil {
			return succ, false
		}
		succ.treeLock.unlock()

		runtime.Gosched()
	}
}

// insertToTree attaches newN under parent in the isRight slot, bumps that
// side's cached height to 1 (newN is a leaf), and hands off to rebalance
// starting at parent. Callers hold parent.treeLock, acquired by
// chooseParent; insertToTree and the rebalance it starts release it.
func (s *Set[K]) insertToTree(parent, newN *node[K], isRight bool, owner ticket) {
	newN.parent.Store(parent)
	if isRight {
		parent.right.Store(newN)
	} else {
		parent.left.Store(newN)
	}

	newN.treeLock.lock(owner)
	s.rebalance(parent, newN, !isRight, owner)
}
