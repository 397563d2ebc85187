package cache

import (
	"context"
	"errors"
	"time"
)

// NoExpiry stores an entry without a timeout. A zero timeout means
// "use the backend's configured default".
const NoExpiry = time.Duration(-1)

// Status classifies the outcome of a backend read.
type Status int

const (
	// StatusOK means the key was present and Result.Value holds the stored value.
	StatusOK Status = iota

	// StatusAbsent means the backend has no live entry for the key. A cached
	// value that is itself nil is indistinguishable from a miss.
	StatusAbsent

	// StatusTooLarge means the backend refused the value because it exceeds
	// the backend's per-entry capacity.
	StatusTooLarge
)

// Result is the outcome of a single backend read. Modeling presence as a
// variant instead of a sentinel error keeps "absent" distinct from "backend
// unreachable", which callers must treat as a hard failure.
type Result struct {
	Value  any
	Status Status
}

// OK reports whether the read produced a stored value.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Absent is the Result for a key with no live entry.
func Absent() Result {
	return Result{Status: StatusAbsent}
}

// Hit wraps a stored value in an ok Result.
func Hit(v any) Result {
	return Result{Value: v, Status: StatusOK}
}

// ErrTooLarge is returned by Set/SetMany when a value exceeds the backend's
// per-entry capacity. Reads carry the same condition via StatusTooLarge.
var ErrTooLarge = errors.New("cache: value too large for backend")

// ErrInvalidKey is returned by backends that restrict key shape (memcached)
// when a key cannot be stored as-is.
var ErrInvalidKey = errors.New("cache: invalid key for backend")

// Backend is the capability contract every storage backend satisfies. Keys
// are plain strings; values are opaque to the engine. Each operation is a
// bounded synchronous round trip; any transport or storage failure is
// returned unchanged rather than degraded to a miss.
type Backend interface {
	// Get returns the value stored under key, or an absent Result.
	Get(ctx context.Context, key string) (Result, error)

	// Set stores value under key with the given timeout.
	Set(ctx context.Context, key string, value any, timeout time.Duration) error

	// Add stores value under key only if the key has no live entry.
	Add(ctx context.Context, key string, value any, timeout time.Duration) error

	// Delete removes the entry under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetMany returns one Result per key, order-preserving.
	GetMany(ctx context.Context, keys ...string) ([]Result, error)

	// SetMany stores every entry in items with a shared timeout.
	SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error

	// DeleteMany removes every listed key.
	DeleteMany(ctx context.Context, keys ...string) error

	// Clear removes every entry this backend is responsible for.
	Clear(ctx context.Context) error
}
