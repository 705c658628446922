package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	redisclient "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redisclient.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived named locks shared by every API instance.
type Locker struct {
	client *redisclient.Client
}

func NewLocker(client *redisclient.Client) *Locker {
	return &Locker{client: client}
}

// TryLock returns ok=false without waiting when the lock is held elsewhere.
// The lock expires after ttl even if release is never called.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
