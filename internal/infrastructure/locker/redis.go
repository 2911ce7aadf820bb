package locker

import (
	"context"
	"fmt"
	"time"

	"shopify-insights-core/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// lockTTL caps how long a crashed run can keep a key locked.
const lockTTL = 15 * time.Minute

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a single-flight guard backed by Redis SET NX, for
// deployments running more than one instance.
type RedisLocker struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, logger zerolog.Logger) ports.SyncLocker {
	return &RedisLocker{client: client, logger: logger}
}

// TryLock acquires the key via SET NX with a TTL. The stored uuid token makes
// release safe: only the owning run can delete the key.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	redisKey := "synclock:" + key

	acquired, err := l.client.SetNX(ctx, redisKey, token, lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release sync lock")
		}
	}
	return release, true, nil
}
