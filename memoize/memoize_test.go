package memoize

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/pkg/testsupport"
)

func newTestMemoizer(t *testing.T) (*Memoizer, *testsupport.FakeBackend) {
	t.Helper()
	fake := testsupport.NewFakeBackend()
	return New(fake, cache.Config{}), fake
}

// adder exercises instance-bound memoization; calls tracks computations
// across the shared method.
type adder struct {
	base  int
	calls *int32
}

func (a *adder) Add(b int) int {
	atomic.AddInt32(a.calls, 1)
	return a.base + b
}

func TestMemoizeRejectsInvalid(t *testing.T) {
	m, _ := newTestMemoizer(t)

	tests := []struct {
		name    string
		fn      any
		wantErr error
	}{
		{"nil", nil, ErrNotAFunction},
		{"not a function", 42, ErrNotAFunction},
		{"no returns", func() {}, ErrInvalidSignature},
		{"only error", func() error { return nil }, ErrInvalidSignature},
		{"second return not error", func() (int, string) { return 0, "" }, ErrInvalidSignature},
		{"three returns", func() (int, error, error) { return 0, nil, nil }, ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Memoize(tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Memoize error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := m.Memoize(func() int { return 1 }); err != nil {
		t.Errorf("single value return rejected: %v", err)
	}
	if _, err := m.Memoize(func() (string, error) { return "", nil }); err != nil {
		t.Errorf("value+error return rejected: %v", err)
	}
}

func TestCallCachesResult(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.Call(ctx, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("Call(5, 2) = %v, want 7", v)
	}
	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compute count = %d, want 1 (second call served from cache)", calls)
	}

	if _, err := f.Call(ctx, 5, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (different arguments miss)", calls)
	}
}

func TestCallKeywordFormsShareEntry(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	v, err := f.CallKw(ctx, nil, map[string]any{"a": 5, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("keyword call = %v, want 7", v)
	}
	if _, err := f.CallKw(ctx, []any{5}, map[string]any{"b": 2}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compute count = %d, want 1 (all call forms share one entry)", calls)
	}
}

func TestCallAppliesDeclaredDefaults(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b, c int) int {
		atomic.AddInt32(&calls, 1)
		return a + b + c
	}, WithParams(P("a"), P("b"), PD("c", 10)))
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.Call(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 13 {
		t.Errorf("Call(1, 2) = %v, want 13 (default c=10 applied)", v)
	}
	if _, err := f.Call(ctx, 1, 2, 10); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compute count = %d, want 1 (explicit default hits the same entry)", calls)
	}
}

func TestCallVariadicInvocation(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	f, err := m.Memoize(func(a int, rest ...int) int {
		for _, r := range rest {
			a += r
		}
		return a
	}, WithParams(P("a")), WithUnless(func() bool { return true }))
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.Call(ctx, 2, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 9 {
		t.Errorf("Call(2, 3, 4) = %v, want 9 (variadic tail passed through)", v)
	}
}

func TestCallUnlessBypasses(t *testing.T) {
	m, fake := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a * 2
	}, WithParams(P("a")), WithUnless(func() bool { return true }))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		v, err := f.Call(ctx, 21)
		if err != nil {
			t.Fatal(err)
		}
		if v != 42 {
			t.Errorf("Call = %v, want 42", v)
		}
	}
	if calls != 3 {
		t.Errorf("compute count = %d, want 3 (bypassed calls never cache)", calls)
	}
	for _, op := range []string{"Get", "Set", "GetMany", "SetMany"} {
		if got := fake.CallCount(op); got != 0 {
			t.Errorf("%s count = %d, want 0 (bypass does no backend I/O)", op, got)
		}
	}
}

func TestCallTimeoutExpiry(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")), WithTimeout(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("compute count before expiry = %d, want 1", calls)
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count after expiry = %d, want 2", calls)
	}
}

func TestCacheTimeoutMutableAfterRegistration(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	// the timeout is resolved at call time, so mutating the field affects
	// subsequent writes
	f.CacheTimeout = 30 * time.Millisecond

	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (mutated timeout honored)", calls)
	}
}

func TestMakeCacheKeyReplaceable(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	f.MakeCacheKey = func(context.Context, any, []any, map[string]any) (string, error) {
		return "pinned-key", nil
	}

	v1, err := f.Call(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := f.Call(ctx, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Errorf("pinned key returned %v then %v, want one cached value", v1, v2)
	}
	if calls != 1 {
		t.Errorf("compute count = %d, want 1", calls)
	}
}

func TestCallErrorsNotCached(t *testing.T) {
	m, fake := newTestMemoizer(t)
	ctx := context.Background()

	errBroken := errors.New("broken")
	var calls int32
	f, err := m.Memoize(func(a int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errBroken
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); !errors.Is(err, errBroken) {
		t.Fatalf("Call error = %v, want %v", err, errBroken)
	}
	if _, err := f.Call(ctx, 1); !errors.Is(err, errBroken) {
		t.Fatalf("Call error = %v, want %v", err, errBroken)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (failures recompute)", calls)
	}
	if got := fake.CallCount("Set"); got != 0 {
		t.Errorf("Set count = %d, want 0 (failed results never stored)", got)
	}
}

func TestCallBackendReadErrorIsHard(t *testing.T) {
	m, fake := newTestMemoizer(t)
	ctx := context.Background()

	errDown := errors.New("backend down")
	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	fake.Err = errDown
	if _, err := f.Call(ctx, 1); !errors.Is(err, errDown) {
		t.Errorf("Call error = %v, want %v (read failures must not degrade to recompute)", err, errDown)
	}
	if calls != 0 {
		t.Errorf("compute count = %d, want 0", calls)
	}
}

func TestCallNilArgument(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	f, err := m.Memoize(func(s []int) int { return len(s) }, WithParams(P("s")))
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.Call(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("Call(nil) = %v, want 0", v)
	}
}

func TestCallArityMismatch(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	f, err := m.Memoize(func(a, b int) int { return a + b })
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("Call error = %v, want %v", err, ErrInvalidArguments)
	}
}

func TestUncached(t *testing.T) {
	m, fake := newTestMemoizer(t)

	f, err := m.Memoize(func(a, b int) int { return a + b }, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	orig, ok := f.Uncached().(func(a, b int) int)
	if !ok {
		t.Fatalf("Uncached returned %T, want the original function type", f.Uncached())
	}
	if orig(2, 3) != 5 {
		t.Error("Uncached function misbehaves")
	}
	if got := fake.CallCount("Get"); got != 0 {
		t.Errorf("Get count = %d, want 0 (uncached calls skip the backend)", got)
	}
}

func TestDeleteMemoizedExactCall(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 5, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("compute count = %d, want 2", calls)
	}

	if err := m.DeleteMemoized(ctx, f, 5, 2); err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("compute count = %d, want 3 ((5,2) recomputed)", calls)
	}
	if _, err := f.Call(ctx, 5, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("compute count = %d, want 3 ((5,3) untouched)", calls)
	}
}

func TestDeleteMemoizedKeywordCall(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteMemoizedCall(ctx, f, nil, map[string]any{"a": 5, "b": 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (keyword form deleted the positional entry)", calls)
	}
}

func TestDeleteMemoizedAll(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 5, 3); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteMemoized(ctx, f); err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 5, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 5, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("compute count = %d, want 4 (version reset invalidates every entry)", calls)
	}
}

func TestDeleteMemoizedInstanceScope(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize((*adder).Add, WithParams(P("self"), P("b")))
	if err != nil {
		t.Fatal(err)
	}

	a1 := f.Bind(&adder{base: 1, calls: &calls})
	a2 := f.Bind(&adder{base: 2, calls: &calls})

	v1, err := a1.Call(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := a2.Call(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 4 || v2 != 5 {
		t.Fatalf("Add(3) = %v, %v, want 4, 5", v1, v2)
	}
	if calls != 2 {
		t.Fatalf("compute count = %d, want 2 (instances cache separately)", calls)
	}

	// repeated calls hit
	if _, err := a1.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := a2.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("compute count = %d, want 2", calls)
	}

	// invalidating a1 leaves a2's entries alone
	if err := m.DeleteMemoized(ctx, a1); err != nil {
		t.Fatal(err)
	}
	if _, err := a1.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := a2.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("compute count = %d, want 3 (only a1 recomputed)", calls)
	}

	// invalidating the unbound function widens to every instance
	if err := m.DeleteMemoized(ctx, f); err != nil {
		t.Fatal(err)
	}
	if _, err := a1.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := a2.Call(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 5 {
		t.Errorf("compute count = %d, want 5 (both instances recomputed)", calls)
	}
}

func TestDeleteMemoizedClassScope(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a, b int) int {
		atomic.AddInt32(&calls, 1)
		return a + b
	}, WithParams(P("cls"), P("a"), P("b")))
	if err != nil {
		t.Fatal(err)
	}
	if !f.dropReceiver {
		t.Fatal("cls-style registration should drop the receiver at invocation")
	}

	bound := f.Bind(reflect.TypeOf(adder{}))

	if _, err := bound.Call(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.Call(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.Call(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("compute count = %d, want 2", calls)
	}

	if err := m.DeleteMemoized(ctx, bound); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.Call(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.Call(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("compute count = %d, want 4 (class scope invalidated every entry)", calls)
	}
}

func TestDeleteMemoizedInvalidTarget(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	if err := m.DeleteMemoized(ctx, nil); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("DeleteMemoized(nil) = %v, want %v", err, ErrInvalidTarget)
	}
	if err := m.DeleteMemoizedVersionHash(ctx, nil); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("DeleteMemoizedVersionHash(nil) = %v, want %v", err, ErrInvalidTarget)
	}
}

func TestDeleteMemoizedVersionHash(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteMemoizedVersionHash(ctx, f); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (removed version key orphans prior entries)", calls)
	}
}

func TestFuncDeleteShorthand(t *testing.T) {
	m, _ := newTestMemoizer(t)
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2", calls)
	}
}

func TestNullBackendDisablesMemoization(t *testing.T) {
	m := New(&nullLike{}, cache.Config{Type: cache.TypeNull, NoNullWarning: true})
	ctx := context.Background()

	var calls int32
	f, err := m.Memoize(func(a int) int {
		atomic.AddInt32(&calls, 1)
		return a
	}, WithParams(P("a")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("compute count = %d, want 2 (null storage recomputes every call)", calls)
	}
}

// nullLike is a minimal store-nothing backend for exercising the engine
// against a backend that never retains writes.
type nullLike struct{}

func (nullLike) Get(context.Context, string) (cache.Result, error) {
	return cache.Absent(), nil
}

func (nullLike) Set(context.Context, string, any, time.Duration) error { return nil }
func (nullLike) Add(context.Context, string, any, time.Duration) error { return nil }
func (nullLike) Delete(context.Context, string) error                  { return nil }

func (nullLike) GetMany(_ context.Context, keys ...string) ([]cache.Result, error) {
	out := make([]cache.Result, len(keys))
	for i := range out {
		out[i] = cache.Absent()
	}
	return out, nil
}

func (nullLike) SetMany(context.Context, map[string]any, time.Duration) error { return nil }
func (nullLike) DeleteMany(context.Context, ...string) error                  { return nil }
func (nullLike) Clear(context.Context) error                                  { return nil }
