package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
local held = redis.call("GET", KEYS[1])
if not held then
	return 0
end
if held == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return -1
`)

type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		log.Debug().Str("lock_key", key).Msg("lock not acquired")
		return false, "", nil
	}
	return true, token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	res, err := unlockScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	// 0 means the key already expired
	if res == -1 {
		return ErrNotOwner
	}
	return nil
}
