package redis

import (
	"context"
	"time"

	"iptv-client-portal/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker serializes webhook reconciliation per transaction. The lock is a
// latency damper only; correctness comes from the conditional update in the
// transactions table, so a lost or expired lock is harmless.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var unlock = redis.NewScript(unlockScript)

type RedisLocker struct {
	c        *redClient
	attempts int
	backoff  time.Duration
}

func NewLocker(c *redClient) *RedisLocker {
	return &RedisLocker{c: c, attempts: 4, backoff: 75 * time.Millisecond}
}

// TryLock acquires key for ttl and returns the holder token. It gives up
// with ErrLockBusy after a few short-backoff attempts rather than queueing;
// callers treat a busy lock as a concurrent delivery already in flight.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for attempt := 0; ; attempt++ {
		ok, err := l.c.cli.SetNX(ctx, key, token, ttl).Result()
		if err == nil && ok {
			return token, nil
		}
		if attempt+1 >= l.attempts {
			return "", domain.ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// Unlock releases key only if token still holds it, so a slow worker cannot
// drop a lock that already expired and was re-acquired.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := unlock.Run(ctx, l.c.cli, []string{key}, token).Result()
	return err
}
