// Package testsupport provides test doubles and a reusable contract harness
// for cache.Backend implementations.
package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-memoize/cache"
)

// fakeEntry is one stored value with its expiry deadline.
type fakeEntry struct {
	value     any
	expiresAt time.Time
}

// FakeBackend is an in-memory cache.Backend that records every operation, so
// tests can assert on batching behavior (e.g. version resolution issuing one
// GetMany, not N Gets). A non-nil Err makes every operation fail with it.
type FakeBackend struct {
	mu      sync.Mutex
	entries map[string]fakeEntry

	// Calls records operation names in invocation order.
	Calls []string

	// Err, when set, is returned by every operation.
	Err error
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{entries: map[string]fakeEntry{}}
}

func (f *FakeBackend) record(op string) {
	f.Calls = append(f.Calls, op)
}

// CallCount returns how many times op was recorded.
func (f *FakeBackend) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// Len returns the number of live entries.
func (f *FakeBackend) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FakeBackend) get(key string) cache.Result {
	e, ok := f.entries[key]
	if !ok {
		return cache.Absent()
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(f.entries, key)
		return cache.Absent()
	}
	return cache.Hit(e.value)
}

func (f *FakeBackend) put(key string, value any, timeout time.Duration) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	f.entries[key] = fakeEntry{value: value, expiresAt: deadline}
}

func (f *FakeBackend) Get(_ context.Context, key string) (cache.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Get")
	if f.Err != nil {
		return cache.Result{}, f.Err
	}
	return f.get(key), nil
}

func (f *FakeBackend) Set(_ context.Context, key string, value any, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Set")
	if f.Err != nil {
		return f.Err
	}
	f.put(key, value, timeout)
	return nil
}

func (f *FakeBackend) Add(_ context.Context, key string, value any, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Add")
	if f.Err != nil {
		return f.Err
	}
	if res := f.get(key); !res.OK() {
		f.put(key, value, timeout)
	}
	return nil
}

func (f *FakeBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Delete")
	if f.Err != nil {
		return f.Err
	}
	delete(f.entries, key)
	return nil
}

func (f *FakeBackend) GetMany(_ context.Context, keys ...string) ([]cache.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetMany")
	if f.Err != nil {
		return nil, f.Err
	}
	results := make([]cache.Result, len(keys))
	for i, key := range keys {
		results[i] = f.get(key)
	}
	return results, nil
}

func (f *FakeBackend) SetMany(_ context.Context, items map[string]any, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetMany")
	if f.Err != nil {
		return f.Err
	}
	for key, value := range items {
		f.put(key, value, timeout)
	}
	return nil
}

func (f *FakeBackend) DeleteMany(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteMany")
	if f.Err != nil {
		return f.Err
	}
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *FakeBackend) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Clear")
	if f.Err != nil {
		return f.Err
	}
	f.entries = map[string]fakeEntry{}
	return nil
}

// RunBackendContract exercises the cache.Backend capability contract against
// a live implementation: set/get round trip, add-if-absent, delete,
// order-preserving batched reads, batched writes and deletes, per-entry
// expiry and clear. Backends shared by every adapter's test suite.
func RunBackendContract(t *testing.T, backend cache.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		if err := backend.Set(ctx, "hi", "hello", 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		res, err := backend.Get(ctx, "hi")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !res.OK() || asString(res.Value) != "hello" {
			t.Errorf("Get = %+v, want hit with %q", res, "hello")
		}
	})

	t.Run("get absent", func(t *testing.T) {
		res, err := backend.Get(ctx, "never-stored")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if res.Status != cache.StatusAbsent {
			t.Errorf("Get status = %v, want StatusAbsent", res.Status)
		}
	})

	t.Run("add does not overwrite", func(t *testing.T) {
		if err := backend.Add(ctx, "addkey", "first", 0); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := backend.Add(ctx, "addkey", "second", 0); err != nil {
			t.Fatalf("Add: %v", err)
		}
		res, err := backend.Get(ctx, "addkey")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if asString(res.Value) != "first" {
			t.Errorf("value after second Add = %v, want %q", res.Value, "first")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := backend.Set(ctx, "gone", 1, 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := backend.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		res, err := backend.Get(ctx, "gone")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if res.OK() {
			t.Error("entry still present after Delete")
		}
		if err := backend.Delete(ctx, "gone"); err != nil {
			t.Errorf("Delete of missing key: %v", err)
		}
	})

	t.Run("get many preserves order", func(t *testing.T) {
		if err := backend.SetMany(ctx, map[string]any{"m1": "a", "m3": "c"}, 0); err != nil {
			t.Fatalf("SetMany: %v", err)
		}
		results, err := backend.GetMany(ctx, "m1", "m2", "m3")
		if err != nil {
			t.Fatalf("GetMany: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("GetMany returned %d results, want 3", len(results))
		}
		if asString(results[0].Value) != "a" || results[1].OK() || asString(results[2].Value) != "c" {
			t.Errorf("GetMany = %+v, want [a, absent, c]", results)
		}
	})

	t.Run("delete many", func(t *testing.T) {
		if err := backend.SetMany(ctx, map[string]any{"d1": 1, "d2": 2}, 0); err != nil {
			t.Fatalf("SetMany: %v", err)
		}
		if err := backend.DeleteMany(ctx, "d1", "d2"); err != nil {
			t.Fatalf("DeleteMany: %v", err)
		}
		results, err := backend.GetMany(ctx, "d1", "d2")
		if err != nil {
			t.Fatalf("GetMany: %v", err)
		}
		for i, res := range results {
			if res.OK() {
				t.Errorf("entry %d still present after DeleteMany", i)
			}
		}
	})

	t.Run("per entry expiry", func(t *testing.T) {
		if err := backend.Set(ctx, "blink", "x", 50*time.Millisecond); err != nil {
			t.Fatalf("Set: %v", err)
		}
		res, err := backend.Get(ctx, "blink")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !res.OK() {
			t.Fatal("entry absent before timeout")
		}
		time.Sleep(80 * time.Millisecond)
		res, err = backend.Get(ctx, "blink")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if res.OK() {
			t.Error("entry still present after timeout")
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := backend.Set(ctx, "survivor", 1, 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := backend.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		res, err := backend.Get(ctx, "survivor")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if res.OK() {
			t.Error("entry still present after Clear")
		}
	})
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
