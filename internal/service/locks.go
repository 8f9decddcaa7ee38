package service

import "sync"

// groupLocks hands out one mutex per chat id so that a group's
// validate-then-append settlement sequence runs as a critical section.
// Locks are never released back; the map grows with the number of
// groups, which is bounded and small.
type groupLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[int64]*sync.Mutex)}
}

func (g *groupLocks) get(chatID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[chatID] = lock
	}
	return lock
}
