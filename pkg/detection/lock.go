package detection

import (
	"context"
	"errors"
	"time"

	"github.com/Ramsey-B/thistle/pkg/redis"
)

// RedisLocker adapts the Redis locker to Locker.
type RedisLocker struct {
	locker *redis.Locker
}

func NewRedisLocker(locker *redis.Locker) *RedisLocker {
	return &RedisLocker{locker: locker}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error) {
	lock, err := l.locker.Acquire(ctx, key, ttl)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, ErrGroupLocked
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}
