package backends

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-memoize/cache"
)

const (
	sturdyNumShards          = 64
	sturdyEvictionPercentage = 10
)

// Sturdy is an in-process backend over a sturdyc client: sharded, capacity
// bounded, with background eviction. sturdyc expires entries on a
// client-wide TTL, so per-entry timeouts are wrapped alongside the value and
// enforced at read time, the same way Simple does.
type Sturdy struct {
	client         *sturdyc.Client[entry]
	defaultTimeout time.Duration
}

// NewSturdy creates a Sturdy backend. capacity caps the number of entries;
// defaultTimeout applies to writes with a zero timeout and also serves as the
// client-wide TTL floor.
func NewSturdy(capacity int, defaultTimeout time.Duration) *Sturdy {
	clientTTL := defaultTimeout
	if clientTTL <= 0 {
		clientTTL = time.Hour
	}
	// Entries may legitimately outlive the default timeout (longer per-entry
	// timeouts, NoExpiry); keep the client TTL well past it and let the
	// per-entry deadline govern.
	clientTTL *= 2

	return &Sturdy{
		client:         sturdyc.New[entry](capacity, sturdyNumShards, clientTTL, sturdyEvictionPercentage),
		defaultTimeout: defaultTimeout,
	}
}

func (s *Sturdy) deadline(timeout time.Duration) time.Time {
	if timeout == 0 {
		timeout = s.defaultTimeout
	}
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func (s *Sturdy) Get(_ context.Context, key string) (cache.Result, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return cache.Absent(), nil
	}
	if e.expired(time.Now()) {
		s.client.Delete(key)
		return cache.Absent(), nil
	}
	return cache.Hit(e.value), nil
}

func (s *Sturdy) Set(_ context.Context, key string, value any, timeout time.Duration) error {
	s.client.Set(key, entry{value: value, expiresAt: s.deadline(timeout)})
	return nil
}

func (s *Sturdy) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	res, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}
	return s.Set(ctx, key, value, timeout)
}

func (s *Sturdy) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

func (s *Sturdy) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
	results := make([]cache.Result, len(keys))
	for i, key := range keys {
		res, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (s *Sturdy) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	for key, value := range items {
		if err := s.Set(ctx, key, value, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sturdy) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

func (s *Sturdy) Clear(_ context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}
