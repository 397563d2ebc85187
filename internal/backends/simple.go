package backends

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-memoize/cache"
)

// entry is one stored value with its expiry deadline. A zero deadline never
// expires.
type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Simple is an in-process backend over a sharded concurrent map. Entries
// carry individual expiry deadlines enforced on read; when the entry count
// crosses the threshold, expired entries are pruned and, if that is not
// enough, arbitrary entries are evicted to make room.
type Simple struct {
	entries        *xsync.MapOf[string, entry]
	threshold      int
	defaultTimeout time.Duration
}

// NewSimple creates a Simple backend. threshold caps the number of entries
// (0 means unbounded); defaultTimeout applies to writes with a zero timeout.
func NewSimple(threshold int, defaultTimeout time.Duration) *Simple {
	return &Simple{
		entries:        xsync.NewMapOf[string, entry](),
		threshold:      threshold,
		defaultTimeout: defaultTimeout,
	}
}

func (s *Simple) deadline(timeout time.Duration) time.Time {
	if timeout == 0 {
		timeout = s.defaultTimeout
	}
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func (s *Simple) prune() {
	if s.threshold <= 0 || s.entries.Size() < s.threshold {
		return
	}

	now := time.Now()
	s.entries.Range(func(key string, e entry) bool {
		if e.expired(now) {
			s.entries.Delete(key)
		}
		return true
	})

	over := s.entries.Size() - s.threshold
	if over < 0 {
		return
	}
	s.entries.Range(func(key string, _ entry) bool {
		s.entries.Delete(key)
		over--
		return over >= 0
	})
}

func (s *Simple) Get(_ context.Context, key string) (cache.Result, error) {
	e, ok := s.entries.Load(key)
	if !ok {
		return cache.Absent(), nil
	}
	if e.expired(time.Now()) {
		s.entries.Delete(key)
		return cache.Absent(), nil
	}
	return cache.Hit(e.value), nil
}

func (s *Simple) Set(_ context.Context, key string, value any, timeout time.Duration) error {
	s.prune()
	s.entries.Store(key, entry{value: value, expiresAt: s.deadline(timeout)})
	return nil
}

func (s *Simple) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	res, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}
	return s.Set(ctx, key, value, timeout)
}

func (s *Simple) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

func (s *Simple) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
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

func (s *Simple) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	for key, value := range items {
		if err := s.Set(ctx, key, value, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simple) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.entries.Delete(key)
	}
	return nil
}

func (s *Simple) Clear(_ context.Context) error {
	s.entries.Clear()
	return nil
}
