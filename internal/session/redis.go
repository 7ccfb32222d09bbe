package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"billbot/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisRepository is the externalized session store for multi-instance
// deployments. Values are JSON, TTL equals the session timeout so Redis
// garbage-collects stale sessions on its own; the LastInteraction stamp stays
// authoritative for the expiry decision.
type RedisRepository struct {
	rdb     *redis.Client
	timeout time.Duration
	now     func() time.Time
}

func NewRedisRepository(rdb *redis.Client, timeout time.Duration) *RedisRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisRepository{rdb: rdb, timeout: timeout, now: time.Now}
}

func sessionKey(id domain.Identity) string {
	return fmt.Sprintf("session:%s", id)
}

func (r *RedisRepository) Get(ctx context.Context, id domain.Identity) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get %s: %w", id, err)
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session decode %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisRepository) Put(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", s.Identity, err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.Identity), raw, r.timeout).Err(); err != nil {
		return fmt.Errorf("session put %s: %w", s.Identity, err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id domain.Identity) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("session delete %s: %w", id, err)
	}
	return nil
}

func (r *RedisRepository) IsExpired(ctx context.Context, id domain.Identity) (bool, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if s == nil {
		return true, nil
	}
	return expired(s, r.timeout, r.now()), nil
}
