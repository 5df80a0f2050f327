// Package scanlock provides a redis-backed fast-path guard against concurrent
// scans. The store's running-scan row stays authoritative; this lock only
// short-circuits the common race cheaply.
package scanlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKey = "kbingest:scan_lock"

// TTL bounds how long a crashed process can hold the lock.
const defaultTTL = 30 * time.Minute

type Lock struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client) *Lock {
	return &Lock{client: client, ttl: defaultTTL}
}

// TryLock attempts to take the scan lock without blocking.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire scan lock: %w", err)
	}
	return ok, nil
}

func (l *Lock) Unlock(ctx context.Context) error {
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		return fmt.Errorf("release scan lock: %w", err)
	}
	return nil
}
