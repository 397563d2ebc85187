package memoize

import "errors"

var (
	// ErrNotAFunction is returned by Memoize when the registered value is not
	// callable.
	ErrNotAFunction = errors.New("memoize: value is not a function")

	// ErrInvalidSignature is returned by Memoize for functions whose return
	// shape cannot be cached: more than two results, or two results where the
	// second is not an error.
	ErrInvalidSignature = errors.New("memoize: unsupported function signature")

	// ErrInvalidArguments is returned when a call cannot be applied to the
	// memoized function: wrong argument count after canonicalization, or a
	// value that does not match the parameter type. It surfaces at invocation
	// time, exactly where the underlying call itself would fail.
	ErrInvalidArguments = errors.New("memoize: arguments do not match the memoized function")

	// ErrInvalidTarget is returned when an invalidation entry point receives
	// something other than a memoized function. A configuration error,
	// surfaced immediately rather than attempted.
	ErrInvalidTarget = errors.New("memoize: invalidation target is not a memoized function")
)
