package cavl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockUncontended(t *testing.T) {
	var m holderMutex
	owner := newTicket()

	m.lock(owner)
	assert.True(t, m.ownsLock(owner), "lock() should make owner the holder")
	m.unlock()
	assert.False(t, m.ownsLock(owner), "unlock() should clear the holder")
}

func TestLockReentrant(t *testing.T) {
	var m holderMutex
	owner := newTicket()

	m.lock(owner)
	m.lock(owner) // re-entry: must not deadlock
	m.lock(owner)
	assert.Equal(t, 3, m.depth)

	m.unlock() // a single unlock fully releases regardless of reentry depth
	assert.False(t, m.ownsLock(owner))
	assert.Equal(t, 0, m.depth)
}

func TestLockExcludesOtherTickets(t *testing.T) {
	var m holderMutex
	a, b := newTicket(), newTicket()

	m.lock(a)
	assert.False(t, m.tryLock(b), "a different ticket should not acquire a held lock")
	m.unlock()
	assert.True(t, m.tryLock(b), "lock should be free once its holder unlocks")
	m.unlock()
}

func TestTryLockReentrant(t *testing.T) {
	var m holderMutex
	owner := newTicket()

	assert.True(t, m.tryLock(owner))
	assert.True(t, m.tryLock(owner), "tryLock should succeed on re-entry without blocking")
	assert.Equal(t, 2, m.depth)
	m.unlock()
}

func TestLockBlocksUntilReleased(t *testing.T) {
	var m holderMutex
	a, b := newTicket(), newTicket()

	m.lock(a)

	acquired := make(chan struct{})
	go func() {
		m.lock(b)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second ticket acquired a lock still held by the first")
	case <-time.After(20 * time.Millisecond):
	}

	m.unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never granted to the waiting ticket after release")
	}
	assert.True(t, m.ownsLock(b))
	m.unlock()
}

// Mirrors the teacher's own concurrency smoke test: many goroutines racing
// to take a single lock in a tight loop must never observe two owners at
// once, and every acquire must eventually be matched by an unlock.
func TestLockMutualExclusionUnderContention(t *testing.T) {
	var m holderMutex
	var inside int32
	var wg sync.WaitGroup

	const goroutines = 32
	const iterations = 200

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				owner := newTicket()
				m.lock(owner)
				inside++
				assert.Equal(t, int32(1), inside, "mutual exclusion violated")
				inside--
				m.unlock()
			}
		}()
	}
	wg.Wait()
}
