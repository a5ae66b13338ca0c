package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The TTL outlives the daily cycle so a crashed holder cannot wedge the
// schedule for more than one missed run.
const defaultLockTTL = 25 * time.Hour

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a best-effort mutex over a single Redis key. Each
// acquisition writes a fresh owner token so a stale instance cannot
// release a lock it no longer holds.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	lock := &RedisLock{client: client, key: key, ttl: ttl}
	if lock.ttl <= 0 {
		lock.ttl = defaultLockTTL
	}
	return lock, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if !won {
		return false, nil
	}
	l.owner = token
	return true, nil
}

// Release deletes the key only while our owner token is still stored.
// A lock that expired and was re-acquired elsewhere is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	stored, err := l.client.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		l.owner = ""
		return nil
	case err != nil:
		return fmt.Errorf("read lock owner: %w", err)
	case stored != l.owner:
		l.owner = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
