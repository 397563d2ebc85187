// Package cache defines the storage contract and configuration shared by the
// memoization engine and its backend adapters.
//
// # Overview
//
// This package exports two things:
//
//   - Backend: the key-value capability contract every storage backend
//     satisfies (get, set, add, delete, batched variants, clear — each with a
//     per-entry timeout)
//   - Config: the configuration surface used to select and parameterize a
//     backend and to tune the engine's defaults
//
// The engine in the memoize package is written purely against Backend; the
// adapters in internal/backends provide in-process, redis, memcached and
// filesystem implementations, constructed via the pkg/di container.
//
// # Reads as variants
//
// A backend read returns a Result rather than (value, bool) or a sentinel
// error. This keeps three distinct conditions apart:
//
//   - StatusOK: a stored value
//   - StatusAbsent: no live entry — the caller recomputes
//   - StatusTooLarge: the backend refused the entry for capacity reasons
//
// Transport and storage failures travel on the error return and must be
// treated as hard errors. Degrading a failed read to a silent miss would
// defeat version-based invalidation, so the engine never does it.
//
// # Timeouts
//
// Every write takes a timeout. Zero means "use the backend's configured
// default"; NoExpiry stores the entry without a timeout. Expiry is enforced
// by the backend, not the engine — there is no background eviction here.
package cache
