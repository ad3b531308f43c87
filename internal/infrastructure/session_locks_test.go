package infrastructure_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dealerhub/internal/infrastructure"
)

func TestSessionLocksSerializeSamePair(t *testing.T) {
	locks := infrastructure.NewSessionLocks()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	release := locks.Acquire(1, "100")

	wg.Add(1)
	go func() {
		defer wg.Done()
		unlock := locks.Acquire(1, "100")
		defer unlock()
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	release()

	wg.Wait()
	assert.Equal(t, []int{1, 2}, order)
}

func TestSessionLocksIndependentPairs(t *testing.T) {
	locks := infrastructure.NewSessionLocks()

	release := locks.Acquire(1, "100")
	defer release()

	done := make(chan struct{})
	go func() {
		unlock := locks.Acquire(1, "200")
		unlock()
		unlock = locks.Acquire(2, "100")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("other sessions blocked behind an unrelated lock")
	}
}

func TestSessionLocksSweep(t *testing.T) {
	locks := infrastructure.NewSessionLocks()

	unlock := locks.Acquire(1, "100")
	unlock()
	unlock = locks.Acquire(1, "200")
	unlock()

	// Nothing is idle yet.
	assert.Equal(t, 0, locks.Sweep(time.Minute))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, locks.Sweep(10*time.Millisecond))

	// A held lock survives the sweep.
	release := locks.Acquire(1, "300")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, locks.Sweep(10*time.Millisecond))
	release()
}

func TestSessionLocksSweepKeepsQueuedWaiters(t *testing.T) {
	locks := infrastructure.NewSessionLocks()
	release := locks.Acquire(1, "100")

	var inside int32
	var wg sync.WaitGroup
	enter := func() {
		defer wg.Done()
		unlock := locks.Acquire(1, "100")
		defer unlock()
		if atomic.AddInt32(&inside, 1) != 1 {
			t.Error("two goroutines inside the same session at once")
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inside, -1)
	}

	wg.Add(2)
	go enter()
	time.Sleep(20 * time.Millisecond)

	// A waiter is queued on the held lock; no idle age may evict the entry,
	// or a later Acquire would mint a second lock for the key.
	assert.Equal(t, 0, locks.Sweep(time.Nanosecond))

	go enter()
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()
}
