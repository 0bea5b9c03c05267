package storage

import "sync"

// keyLocks is an in-process lock table keyed like postgres advisory locks.
type keyLocks struct {
	mu   sync.Mutex
	held map[int64]bool
}

func (l *keyLocks) tryLock(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false
	}
	if l.held == nil {
		l.held = make(map[int64]bool)
	}
	l.held[key] = true
	return true
}

func (l *keyLocks) unlock(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
