// Package rdx owns the redis connection shared by the rate cache, the event
// bus and the per-user locks.
package rdx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials addr and pings it. Without REDIS_ADDR the callers use
// in-process alternatives instead.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return client, nil
}

// Locker hands out short-lived exclusive locks keyed by name.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// ErrLocked is returned when the lock is held by someone else.
var ErrLocked = fmt.Errorf("lock is held")

// RedisLocker implements Locker with SETNX plus expiry.
type RedisLocker struct {
	Client redis.Cmdable
}

func (l RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	ok, err := l.Client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { l.Client.Del(context.Background(), "lock:"+key) }, nil
}

// NoLocker always grants the lock.
type NoLocker struct{}

func (NoLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
