package lock

import (
	"context"
	"errors"
	"fmt"
	"logistics-route-service/internal/ports"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out per-route leases shared by every process that talks
// to the same Redis.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ ports.RouteLocker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "logistics:route-lock:"
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

func (l *RedisLocker) key(routeID int) string {
	return l.keyPrefix + strconv.Itoa(routeID)
}

func (l *RedisLocker) TryLock(ctx context.Context, routeID int, ttl time.Duration) (ports.UnlockFunc, bool, error) {
	if l.client == nil {
		return nil, false, errors.New("redis locker: client is nil")
	}
	if ttl <= 0 {
		return nil, false, fmt.Errorf("redis locker: ttl must be positive, got %s", ttl)
	}

	key := l.key(routeID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock route %d: %w", routeID, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("unlock route %d: %w", routeID, err)
		}
		return nil
	}
	return unlock, true, nil
}
