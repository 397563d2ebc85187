package memoize

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/goliatone/go-memoize/cache"
)

// Memoizer derives cache keys for function calls, reads previously stored
// results from a pluggable backend, computes-and-stores on miss, and exposes
// selective invalidation. It adds no locking of its own: concurrent callers
// racing on the same key during a miss may both compute and both write, which
// is an accepted stampede.
type Memoizer struct {
	backend cache.Backend
	config  cache.Config
	logger  *slog.Logger
}

// Option configures a Memoizer.
type Option func(*Memoizer)

// WithLogger sets the structured logger used for hit/miss and invalidation
// diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memoizer) {
		m.logger = l
	}
}

// New creates a Memoizer over the given backend.
func New(backend cache.Backend, cfg cache.Config, opts ...Option) *Memoizer {
	m := &Memoizer{
		backend: backend,
		config:  cfg.Normalize(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.config.Type == cache.TypeNull && !m.config.NoNullWarning {
		m.logger.Warn("cache type is null, memoization is effectively disabled")
	}
	return m
}

// Backend returns the underlying storage backend.
func (m *Memoizer) Backend() cache.Backend {
	return m.backend
}

// Config returns a copy of the memoizer's configuration.
func (m *Memoizer) Config() cache.Config {
	return m.config
}

// Backend proxies. These operate on raw backend keys and exist so callers and
// tests can inspect or manage entries (version keys included) without going
// around the engine.

func (m *Memoizer) Get(ctx context.Context, key string) (cache.Result, error) {
	return m.backend.Get(ctx, key)
}

func (m *Memoizer) Set(ctx context.Context, key string, value any, timeout time.Duration) error {
	return m.backend.Set(ctx, key, value, timeout)
}

func (m *Memoizer) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	return m.backend.Add(ctx, key, value, timeout)
}

func (m *Memoizer) Delete(ctx context.Context, key string) error {
	return m.backend.Delete(ctx, key)
}

func (m *Memoizer) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
	return m.backend.GetMany(ctx, keys...)
}

func (m *Memoizer) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	return m.backend.SetMany(ctx, items, timeout)
}

func (m *Memoizer) DeleteMany(ctx context.Context, keys ...string) error {
	return m.backend.DeleteMany(ctx, keys...)
}

func (m *Memoizer) Clear(ctx context.Context) error {
	return m.backend.Clear(ctx)
}

// VersionKey returns the backend key holding the version token for a
// function or instance namespace.
func VersionKey(namespace string) string {
	return versionKey(namespace)
}

// Func is a memoized function: the wrapped callable plus the mutable
// configuration record owned by the call site that created it.
//
// CacheTimeout and MakeCacheKey are deliberately exported and mutable;
// CacheTimeout is resolved at call time, so changing it after registration
// affects future writes.
type Func struct {
	memo  *Memoizer
	fn    any
	fnVal reflect.Value

	fname        string
	params       []Param
	receiver     any
	dropReceiver bool
	makeName     func(string) string
	unless       func() bool

	// CacheTimeout is the write timeout for this function's cached results.
	// Zero uses the backend's default; cache.NoExpiry disables expiry.
	CacheTimeout time.Duration

	// MakeCacheKey builds the backend key for a call. Replaceable.
	MakeCacheKey KeyFunc
}

// FuncOption configures a memoized function at registration.
type FuncOption func(*Func)

// WithTimeout sets the cache timeout for the function's results.
func WithTimeout(d time.Duration) FuncOption {
	return func(f *Func) {
		f.CacheTimeout = d
	}
}

// WithParams declares the function's parameter descriptors: names, order and
// default values. Required for keyword-form calls and for default
// substitution; without it positional-only descriptors are synthesized from
// the function's arity.
func WithParams(params ...Param) FuncOption {
	return func(f *Func) {
		f.params = params
	}
}

// WithMakeName overrides the function namespace used in key material, letting
// callers group several function variants under one name.
func WithMakeName(makeName func(string) string) FuncOption {
	return func(f *Func) {
		f.makeName = makeName
	}
}

// WithUnless sets a predicate that bypasses caching entirely when true: no
// key is built and no backend I/O happens for that call.
func WithUnless(unless func() bool) FuncOption {
	return func(f *Func) {
		f.unless = unless
	}
}

// Memoize wraps fn for caching. fn must be a function returning a value, or a
// value and an error.
func (m *Memoizer) Memoize(fn any, opts ...FuncOption) (*Func, error) {
	rv := reflect.ValueOf(fn)
	if fn == nil || rv.Kind() != reflect.Func {
		return nil, ErrNotAFunction
	}
	if err := validateReturns(rv.Type()); err != nil {
		return nil, err
	}

	f := &Func{
		memo:  m,
		fn:    fn,
		fnVal: rv,
		fname: scrubNamespace(functionName(fn)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.params == nil {
		f.params = synthesizeParams(rv.Type().NumIn())
	}

	// cls-style functions declare a receiver slot the Go signature does not
	// carry; the receiver then participates in identity but not invocation.
	f.dropReceiver = len(f.params) > 0 && f.params[0].isReceiver() &&
		rv.Type().NumIn() == len(f.params)-1

	f.MakeCacheKey = m.makeCacheKeyFor(f)
	return f, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func validateReturns(ft reflect.Type) error {
	switch ft.NumOut() {
	case 0:
		return fmt.Errorf("%w: function returns nothing to cache", ErrInvalidSignature)
	case 1:
		if ft.Out(0).Implements(errType) {
			return fmt.Errorf("%w: function returns only an error", ErrInvalidSignature)
		}
	case 2:
		if !ft.Out(1).Implements(errType) {
			return fmt.Errorf("%w: second return value must be an error", ErrInvalidSignature)
		}
	default:
		return fmt.Errorf("%w: at most two return values are supported", ErrInvalidSignature)
	}
	return nil
}

// Uncached returns the original undecorated function.
func (f *Func) Uncached() any {
	return f.fn
}

// Namespace returns the function's scrubbed identity namespace.
func (f *Func) Namespace() string {
	return f.fname
}

// Bind returns a copy of f bound to receiver, the analog of a bound method.
// Calls omit the receiver argument, instance identity is fixed to receiver,
// and argument-less invalidation becomes instance-scoped. Binding a
// reflect.Type gives classmethod semantics: one shared instance scope for
// every call through the class.
func (f *Func) Bind(receiver any) *Func {
	bound := *f
	bound.receiver = receiver
	bound.MakeCacheKey = f.memo.makeCacheKeyFor(&bound)
	return &bound
}

// callArgs is the effective argument sequence: the bound receiver, if any,
// followed by the caller's arguments.
func (f *Func) callArgs(args []any) []any {
	if f.receiver == nil {
		return args
	}
	merged := make([]any, 0, len(args)+1)
	merged = append(merged, f.receiver)
	return append(merged, args...)
}

// Call invokes the memoized function with positional arguments.
func (f *Func) Call(ctx context.Context, args ...any) (any, error) {
	return f.CallKw(ctx, args, nil)
}

// CallKw invokes the memoized function with positional and keyword arguments.
// Equivalent calls — however the caller split them across the two forms —
// resolve to the same cache key.
//
// A backend read failure is a hard error, not a silent miss: degrading to
// recompute would quietly defeat invalidation semantics.
func (f *Func) CallKw(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if f.unless != nil && f.unless() {
		return f.invoke(args, kwargs)
	}

	callArgs := f.callArgs(args)
	key, err := f.MakeCacheKey(ctx, f.fn, callArgs, kwargs)
	if err != nil {
		return nil, err
	}

	res, err := f.memo.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if res.OK() {
		f.memo.logger.Debug("memoize hit", "function", f.fname, "key", key)
		return res.Value, nil
	}

	value, err := f.invoke(args, kwargs)
	if err != nil {
		return nil, err
	}

	if err := f.memo.backend.Set(ctx, key, value, f.CacheTimeout); err != nil {
		return nil, err
	}
	f.memo.logger.Debug("memoize store", "function", f.fname, "key", key)
	return value, nil
}

// Delete is the bound invalidation entry point; see Memoizer.DeleteMemoized.
func (f *Func) Delete(ctx context.Context, args ...any) error {
	return f.memo.DeleteMemoized(ctx, f, args...)
}

// invoke applies the wrapped function directly, bypassing the cache.
func (f *Func) invoke(args []any, kwargs map[string]any) (any, error) {
	in, err := f.invocationArgs(f.callArgs(args), kwargs)
	if err != nil {
		return nil, err
	}
	if f.dropReceiver && len(in) > 0 {
		in = in[1:]
	}
	return f.apply(in)
}

// invocationArgs resolves the actual argument list for a call: keyword
// arguments fold into positional order and declared defaults fill omitted
// parameters (Go cannot apply defaults itself). Unlike canonicalArgs it keeps
// raw values (the receiver included), passes a variadic tail through, and
// fails fast when a required parameter has no value at all.
func (f *Func) invocationArgs(args []any, kwargs map[string]any) ([]any, error) {
	out := make([]any, 0, len(f.params))
	numArgs := len(args)
	consumed := 0
	posUsed := 0

	for i, p := range f.params {
		argNum := i - consumed

		switch {
		case i == 0 && p.isReceiver() && numArgs > 0:
			out = append(out, args[0])
			posUsed = 1
		case kwargs[p.Name] != nil:
			out = append(out, kwargs[p.Name])
			consumed++
		case argNum < numArgs:
			out = append(out, args[argNum])
			if argNum+1 > posUsed {
				posUsed = argNum + 1
			}
		case p.Default != nil:
			out = append(out, p.Default)
		default:
			return nil, fmt.Errorf("%w: missing value for parameter %q", ErrInvalidArguments, p.Name)
		}
	}

	if numArgs > posUsed {
		out = append(out, args[posUsed:]...)
	}
	return out, nil
}

// apply converts in to reflect values and calls the wrapped function,
// mirroring how the call itself would fail on arity or type mismatches.
func (f *Func) apply(in []any) (any, error) {
	ft := f.fnVal.Type()

	if ft.IsVariadic() {
		if len(in) < ft.NumIn()-1 {
			return nil, fmt.Errorf("%w: got %d arguments, want at least %d", ErrInvalidArguments, len(in), ft.NumIn()-1)
		}
	} else if len(in) != ft.NumIn() {
		return nil, fmt.Errorf("%w: got %d arguments, want %d", ErrInvalidArguments, len(in), ft.NumIn())
	}

	vals := make([]reflect.Value, len(in))
	for i, a := range in {
		pt := paramType(ft, i)
		v, err := argValue(a, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", ErrInvalidArguments, i, err)
		}
		vals[i] = v
	}

	results := f.fnVal.Call(vals)

	var value any
	var err error
	switch ft.NumOut() {
	case 1:
		value = results[0].Interface()
	case 2:
		value = results[0].Interface()
		if !results[1].IsNil() {
			err = results[1].Interface().(error)
		}
	}
	return value, err
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

func argValue(a any, pt reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch pt.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
			return reflect.Zero(pt), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil for non-nilable %s", pt)
		}
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if av.Type().ConvertibleTo(pt) {
		return av.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", av.Type(), pt)
}

// DeleteMemoized invalidates cached results for f.
//
// With no arguments it swaps the most specific version token — instance
// scoped when f is bound, function scoped otherwise — which invalidates every
// existing and future key for that scope in O(1) without touching data keys.
// The orphaned entries expire via their own timeouts.
//
// With arguments it rebuilds the exact key for that call and deletes only
// that entry; no version token changes.
func (m *Memoizer) DeleteMemoized(ctx context.Context, f *Func, args ...any) error {
	return m.DeleteMemoizedCall(ctx, f, args, nil)
}

// DeleteMemoizedCall is DeleteMemoized for calls expressed with keyword
// arguments.
func (m *Memoizer) DeleteMemoizedCall(ctx context.Context, f *Func, args []any, kwargs map[string]any) error {
	if !validTarget(f) {
		return ErrInvalidTarget
	}

	if len(args) == 0 && len(kwargs) == 0 {
		_, _, err := m.memoizeVersion(ctx, f, f.callArgs(nil), versionReset, f.CacheTimeout)
		if err == nil {
			m.logger.Debug("memoize version reset", "function", f.fname, "bound", f.receiver != nil)
		}
		return err
	}

	key, err := f.MakeCacheKey(ctx, f.Uncached(), f.callArgs(args), kwargs)
	if err != nil {
		return err
	}
	return m.backend.Delete(ctx, key)
}

// DeleteMemoizedVersionHash removes f's most specific version key entirely.
// Data keys derived from the removed token stay behind until their timeouts
// reclaim them; bounding that is the caller's responsibility.
func (m *Memoizer) DeleteMemoizedVersionHash(ctx context.Context, f *Func) error {
	if !validTarget(f) {
		return ErrInvalidTarget
	}
	_, _, err := m.memoizeVersion(ctx, f, f.callArgs(nil), versionDelete, f.CacheTimeout)
	return err
}

func validTarget(f *Func) bool {
	return f != nil && isCallable(f.fn)
}
