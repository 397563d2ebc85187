package backends

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/goliatone/go-memoize/cache"
)

const memcachedMaxKeyLen = 250

// Memcached is a backend over memcached servers. Values are msgpack-encoded;
// keys are validated against memcached's restrictions before touching the
// wire and carry the configured prefix.
type Memcached struct {
	client         *memcache.Client
	keyPrefix      string
	defaultTimeout time.Duration
}

// NewMemcached creates a Memcached backend over host:port server addresses.
func NewMemcached(servers []string, keyPrefix string, defaultTimeout time.Duration) *Memcached {
	return &Memcached{
		client:         memcache.New(servers...),
		keyPrefix:      keyPrefix,
		defaultTimeout: defaultTimeout,
	}
}

// validKey reports whether key can be stored by memcached: 1 to 250 bytes,
// no whitespace or control characters.
func validKey(key string) bool {
	if len(key) == 0 || len(key) > memcachedMaxKeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= 0x21 || key[i] == 0x7f {
			return false
		}
	}
	return true
}

func (m *Memcached) key(key string) (string, error) {
	k := m.keyPrefix + key
	if !validKey(k) {
		return "", cache.ErrInvalidKey
	}
	return k, nil
}

func (m *Memcached) expiration(timeout time.Duration) int32 {
	if timeout == 0 {
		timeout = m.defaultTimeout
	}
	if timeout == cache.NoExpiry || timeout < 0 {
		return 0
	}
	return int32(timeout / time.Second)
}

// wrapWriteErr maps capacity refusals onto cache.ErrTooLarge so callers can
// branch on the condition instead of matching server error strings.
func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, memcache.ErrServerError) || strings.Contains(err.Error(), "too large") {
		return cache.ErrTooLarge
	}
	return err
}

func (m *Memcached) Get(ctx context.Context, key string) (cache.Result, error) {
	k, err := m.key(key)
	if err != nil {
		return cache.Result{}, err
	}
	item, err := m.client.Get(k)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return cache.Absent(), nil
	}
	if err != nil {
		return cache.Result{}, err
	}
	value, err := decodeValue(item.Value)
	if err != nil {
		return cache.Result{}, err
	}
	return cache.Hit(value), nil
}

func (m *Memcached) Set(ctx context.Context, key string, value any, timeout time.Duration) error {
	k, err := m.key(key)
	if err != nil {
		return err
	}
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	return wrapWriteErr(m.client.Set(&memcache.Item{
		Key:        k,
		Value:      data,
		Expiration: m.expiration(timeout),
	}))
}

func (m *Memcached) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	k, err := m.key(key)
	if err != nil {
		return err
	}
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	err = m.client.Add(&memcache.Item{
		Key:        k,
		Value:      data,
		Expiration: m.expiration(timeout),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		return nil
	}
	return wrapWriteErr(err)
}

func (m *Memcached) Delete(ctx context.Context, key string) error {
	k, err := m.key(key)
	if err != nil {
		return err
	}
	err = m.client.Delete(k)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (m *Memcached) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		k, err := m.key(key)
		if err != nil {
			return nil, err
		}
		prefixed = append(prefixed, k)
	}

	items, err := m.client.GetMulti(prefixed)
	if err != nil {
		return nil, err
	}

	results := make([]cache.Result, len(keys))
	for i, k := range prefixed {
		item, ok := items[k]
		if !ok {
			results[i] = cache.Absent()
			continue
		}
		value, err := decodeValue(item.Value)
		if err != nil {
			return nil, err
		}
		results[i] = cache.Hit(value)
	}
	return results, nil
}

func (m *Memcached) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	for key, value := range items {
		if err := m.Set(ctx, key, value, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memcached) DeleteMany(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := m.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Clear flushes the servers. Memcached cannot enumerate keys, so there is no
// prefix-scoped variant.
func (m *Memcached) Clear(ctx context.Context) error {
	return m.client.FlushAll()
}
