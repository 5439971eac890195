package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the locker has no Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker is a Redis-backed mutex shared by every process that uses the same
// Redis and prefix. Terminals sharing a cart key take it around each
// read-modify-write of the cart.
type Locker struct {
	R            redis.UniversalClient
	Prefix       string
	TTL          time.Duration
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the lock for key. The lock is released
// even when fn fails. If the lock cannot be taken before ctx ends, ctx.Err()
// is returned and fn is not called.
func (l Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	lockKey := l.Prefix + "lock:" + key
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(lockKey, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
