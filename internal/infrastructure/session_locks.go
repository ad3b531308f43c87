package infrastructure

import (
	"fmt"
	"sync"
	"time"
)

// sessionLock serializes engine steps for one (bot, chat) pair. A session is
// a single-writer resource: sends are not safely replayable, so mutual
// exclusion is used instead of optimistic retries. refs counts holders plus
// blocked waiters and is guarded by the registry mutex, so Sweep never drops
// a lock somebody is still queued on.
type sessionLock struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

// SessionLocks hands out one lock per (bot, chat) key. Different chats of the
// same bot proceed in parallel; steps for the same chat queue up.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

func sessionKey(botID int, chatID string) string {
	return fmt.Sprintf("%d:%s", botID, chatID)
}

// Acquire blocks until the caller holds the per-session lock and returns the
// release func.
func (sl *SessionLocks) Acquire(botID int, chatID string) func() {
	key := sessionKey(botID, chatID)

	sl.mu.Lock()
	l, ok := sl.locks[key]
	if !ok {
		l = &sessionLock{}
		sl.locks[key] = l
	}
	l.refs++
	sl.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		sl.mu.Lock()
		l.refs--
		l.lastUsed = time.Now()
		sl.mu.Unlock()
	}
}

// Sweep drops locks idle longer than maxIdle. A lock with holders or queued
// waiters is never dropped, so one key maps to one lock for as long as
// anybody uses it.
func (sl *SessionLocks) Sweep(maxIdle time.Duration) int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdle)
	for key, l := range sl.locks {
		if l.refs == 0 && l.lastUsed.Before(cutoff) {
			delete(sl.locks, key)
			removed++
		}
	}
	return removed
}
