// Package session provides the per-identity conversation state stores and the
// per-identity serialization lock used by the conversation engine.
package session

import (
	"context"
	"sync"
	"time"

	"billbot/internal/domain"
)

// DefaultTimeout is the session inactivity timeout.
const DefaultTimeout = 30 * time.Minute

// MemoryRepository is the single-instance session store: a mutex-guarded map.
// Multi-instance deployments use the Redis repository instead.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[domain.Identity]*domain.Session
	timeout  time.Duration
	now      func() time.Time
}

func NewMemoryRepository(timeout time.Duration) *MemoryRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MemoryRepository{
		sessions: make(map[domain.Identity]*domain.Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (r *MemoryRepository) Get(_ context.Context, id domain.Identity) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) Put(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.sessions[s.Identity] = &cp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// IsExpired reports whether the stored session is past the timeout. A missing
// session and a session without a last-interaction stamp both count as
// expired: a stamp-less session must not be treated as indefinitely valid.
func (r *MemoryRepository) IsExpired(_ context.Context, id domain.Identity) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return true, nil
	}
	return expired(s, r.timeout, r.now()), nil
}

func expired(s *domain.Session, timeout time.Duration, now time.Time) bool {
	if s.LastInteraction.IsZero() {
		return true
	}
	return now.Sub(s.LastInteraction) > timeout
}
