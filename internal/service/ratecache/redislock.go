package ratecache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker implements RefreshLocker with SET NX PX, so refreshes of the
// same key are serialized across API instances, not just goroutines.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, func(), error) {
	lockKey := "feesched:refresh:" + key

	ok, err := l.client.SetNX(ctx, lockKey, 1, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func() {
		// Best effort; the TTL reclaims the lock if this fails.
		_ = l.client.Del(context.Background(), lockKey).Err()
	}
	return true, release, nil
}

var _ RefreshLocker = (*RedisLocker)(nil)
