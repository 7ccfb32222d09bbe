package session

import (
	"sync"

	"billbot/internal/domain"
)

// Locker serializes message processing per identity. Concurrent handlers
// mutating the same identity's session would corrupt stage transitions, so
// the engine holds the identity's lock for the whole turn. Distinct
// identities proceed in parallel. Entries are reference-counted and removed
// on the last release, so the map only holds identities with turns in
// flight.
type Locker struct {
	mu    sync.Mutex
	locks map[domain.Identity]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[domain.Identity]*lockEntry)}
}

// Acquire locks the identity and returns the release function.
func (l *Locker) Acquire(id domain.Identity) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
