// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cavl

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/arborist-dev/cavl/internal/raceguard"
)

// guard, when non-nil, observes every lock attempt/acquisition/release so
// a test can detect a lock wait-for cycle instead of just hanging
// forever. Production code never sets it; see export_test.go's
// SetRaceGuard.
var guard *raceguard.Detector

func lockID(m *holderMutex) uint64 {
	return uint64(uintptr(unsafe.Pointer(m)))
}

// A ticket stands in for "the calling thread" in a language that doesn't
// expose goroutine identity. Every Insert/Remove call mints one with
// newTicket and threads it through every helper that may need to take, or
// re-take, a node's locks on that operation's behalf.
type ticket uint64

var ticketSeq atomic.Uint64

func newTicket() ticket {
	return ticket(ticketSeq.Add(1))
}

// holderMutex is a reentrant mutex that additionally records which ticket
// currently holds it. Unlike a balanced lock/unlock pair, unlock always
// fully releases the lock regardless of how many times the current holder
// re-entered it: callers that re-lock a node they already hold (rebalance
// re-locking a node it's using as both "child" and, later, "parent" in an
// outer frame) rely on being able to give the lock up in one call without
// tracking their own reentry depth.
type holderMutex struct {
	mu     sync.Mutex
	holder atomic.Uint64 // 0 when unheld, else the owning ticket
	depth  int           // reentry count; touched only by the current holder
}

// lock acquires the mutex for owner, blocking if it is held by a different
// ticket. Re-entering a lock already held by owner never blocks.
func (m *holderMutex) lock(owner ticket) {
	if m.holder.Load() == uint64(owner) {
		m.depth++
		return
	}
	if guard != nil {
		guard.OnAttempt(uint64(owner), lockID(m))
	}
	m.mu.Lock()
	m.holder.Store(uint64(owner))
	m.depth = 1
	if guard != nil {
		guard.OnAcquired(uint64(owner), lockID(m))
	}
}

// tryLock is lock's non-blocking counterpart.
func (m *holderMutex) tryLock(owner ticket) bool {
	if m.holder.Load() == uint64(owner) {
		m.depth++
		return true
	}
	if !m.mu.TryLock() {
		return false
	}
	m.holder.Store(uint64(owner))
	m.depth = 1
	if guard != nil {
		guard.OnAcquired(uint64(owner), lockID(m))
	}
	return true
}

// unlock discards the lock entirely: the holder is cleared and the
// underlying mutex released once, no matter how many times owner re-entered
// it. This is the "bulk release" the rest of the package depends on.
func (m *holderMutex) unlock() {
	if guard != nil {
		guard.OnRelease(uint64(m.holder.Load()), lockID(m))
	}
	m.depth = 0
	m.holder.Store(0)
	m.mu.Unlock()
}

// ownsLock reports whether owner is the current holder.
func (m *holderMutex) ownsLock(owner ticket) bool {
	return m.holder.Load() == uint64(owner)
}
