package storage

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// Redis stores items in Redis under "pos:<origin>:<key>". Several terminals
// can share one Redis as long as their origins differ.
type Redis struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedis wraps an existing client. Close does not close a client it does not own.
func NewRedis(client *redis.Client, origin string) *Redis {
	return &Redis{client: client, prefix: "pos:" + originOrDefault(origin) + ":"}
}

// OpenRedis dials the Redis instance at url and owns the resulting client.
func OpenRedis(url, origin string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	r := NewRedis(redis.NewClient(opts), origin)
	r.owned = true
	return r, nil
}

// Client exposes the underlying client for instrumentation.
func (r *Redis) Client() *redis.Client { return r.client }

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, mapRedisErr(err)
	}
	return value, true, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	return mapRedisErr(r.client.Set(ctx, r.prefix+key, value, 0).Err())
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	return mapRedisErr(r.client.Del(ctx, r.prefix+key).Err())
}

func (r *Redis) Ping(ctx context.Context) error {
	return mapRedisErr(r.client.Ping(ctx).Err())
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

func mapRedisErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}
