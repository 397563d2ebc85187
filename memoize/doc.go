// Package memoize caches function results under deterministically derived
// keys, with O(1) selective invalidation via version tokens.
//
// # Overview
//
// Given a function and a set of call arguments, the engine derives a stable,
// collision-resistant cache key, looks the result up in a pluggable key-value
// backend (see the cache package), and on a miss computes and stores the
// result with a timeout:
//
//	m := memoize.New(backend, cache.DefaultConfig())
//
//	add, _ := m.Memoize(func(a, b int) int {
//		return a + b + expensive()
//	}, memoize.WithTimeout(50*time.Second), memoize.WithParams(memoize.P("a"), memoize.P("b")))
//
//	v, err := add.Call(ctx, 5, 2)
//
// Equivalent call forms produce identical keys: Call(ctx, 1, 2),
// CallKw(ctx, nil, map[string]any{"a": 1, "b": 2}) and
// CallKw(ctx, []any{1}, map[string]any{"b": 2}) all canonicalize to the same
// ordered argument sequence. Declared defaults fill omitted parameters.
//
// # Methods and instances
//
// Method expressions model unbound methods and Bind models bound ones:
//
//	add, _ := m.Memoize(Adder.Add, memoize.WithParams(memoize.P("self"), memoize.P("b")))
//	a1 := add.Bind(adder1)
//	a2 := add.Bind(adder2)
//
// a1.Call(ctx, 3) and a2.Call(ctx, 3) cache independently: the receiver's
// representation (pointer identity by default, overridable via Representer)
// scopes an instance namespace. Binding a reflect.Type gives classmethod
// semantics — every call through the class shares one instance scope.
//
// # Invalidation
//
// Each memoized function owns a short version token in the backend (and each
// bound instance a second one). Every cache key ends with the concatenated
// tokens, so swapping a token makes every key derived from it unreachable at
// once, without enumerating or scanning the backend:
//
//	m.DeleteMemoized(ctx, add)          // function scope: every argument combination
//	m.DeleteMemoized(ctx, a1)           // instance scope: only adder1's entries
//	m.DeleteMemoized(ctx, add, 5, 2)    // exactly one call's entry, token untouched
//	m.DeleteMemoizedVersionHash(ctx, add)
//
// Orphaned entries under old tokens are never scanned-and-deleted; they
// expire through their own timeouts. Use generous but finite timeouts when
// relying on version swaps.
//
// # Limitations
//
// Variadic tails are not represented in the canonical argument sequence. A
// cached value that is itself nil is indistinguishable from a miss. The
// read-compute-write sequence is not atomic; concurrent misses on one key may
// compute twice.
package memoize
