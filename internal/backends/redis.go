package backends

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-memoize/cache"
)

// Redis is a backend over a redis server. Values are msgpack-encoded on the
// wire; keys carry the configured prefix so Clear can scope itself to this
// deployment's entries.
type Redis struct {
	client         *redis.Client
	keyPrefix      string
	defaultTimeout time.Duration
}

// NewRedis creates a Redis backend from a connection URL.
func NewRedis(url, keyPrefix string, defaultTimeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{
		client:         redis.NewClient(opts),
		keyPrefix:      keyPrefix,
		defaultTimeout: defaultTimeout,
	}, nil
}

func (r *Redis) ttl(timeout time.Duration) time.Duration {
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	if timeout == cache.NoExpiry || timeout < 0 {
		return 0
	}
	return timeout
}

func (r *Redis) key(key string) string {
	return r.keyPrefix + key
}

func (r *Redis) Get(ctx context.Context, key string) (cache.Result, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Absent(), nil
	}
	if err != nil {
		return cache.Result{}, err
	}
	value, err := decodeValue(data)
	if err != nil {
		return cache.Result{}, err
	}
	return cache.Hit(value), nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, timeout time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl(timeout)).Err()
}

func (r *Redis) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	return r.client.SetNX(ctx, r.key(key), data, r.ttl(timeout)).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}

	raw, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, err
	}

	results := make([]cache.Result, len(keys))
	for i, v := range raw {
		if v == nil {
			results[i] = cache.Absent()
			continue
		}
		s, ok := v.(string)
		if !ok {
			results[i] = cache.Absent()
			continue
		}
		value, err := decodeValue([]byte(s))
		if err != nil {
			return nil, err
		}
		results[i] = cache.Hit(value)
	}
	return results, nil
}

func (r *Redis) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	pipe := r.client.Pipeline()
	ttl := r.ttl(timeout)
	for key, value := range items {
		data, err := encodeValue(value)
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(key), data, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Clear removes this deployment's entries. With a key prefix it scans and
// deletes only matching keys; without one it flushes the whole database.
func (r *Redis) Clear(ctx context.Context) error {
	if r.keyPrefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
