package memoize

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// cacheKeyLen is the length of the hash prefix of every cache key; the
// version suffix follows it.
const cacheKeyLen = 16

// keyDigestSalt differentiates the second hash lane of digestKey.
const keyDigestSalt = "memoize.digest.2\x00"

// KeyFunc builds the backend key for one call of a memoized function. It is
// exposed (and replaceable) on Func as the MakeCacheKey side channel. target
// is normally the wrapped callable; passing a non-callable value bypasses
// argument canonicalization and hashes the raw arguments, which lets callers
// derive keys for pre-built argument material.
type KeyFunc func(ctx context.Context, target any, args []any, kwargs map[string]any) (string, error)

// digestKey collapses key material into a fixed-length identifier: two salted
// 64-bit hashes form a 16-byte digest, base64-encoded and truncated.
// Collision resistance is what matters here, not cryptographic strength.
func digestKey(payload string) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], xxhash.Sum64String(payload))
	binary.BigEndian.PutUint64(buf[8:], xxhash.Sum64String(keyDigestSalt+payload))
	return base64.StdEncoding.EncodeToString(buf[:])[:cacheKeyLen]
}

// makeCacheKeyFor builds f's default KeyFunc.
//
// The version must be resolved before anything else: resolution lazily
// creates missing tokens, and argument-less invalidation touches only those
// tokens, so this ordering keeps invalidation correct no matter when it runs
// relative to key construction.
func (m *Memoizer) makeCacheKeyFor(f *Func) KeyFunc {
	return func(ctx context.Context, target any, args []any, kwargs map[string]any) (string, error) {
		fname, version, err := m.memoizeVersion(ctx, f, args, versionRead, f.CacheTimeout)
		if err != nil {
			return "", err
		}

		altname := fname
		if f.makeName != nil {
			altname = f.makeName(fname)
		}

		keyargs, keykwargs := args, kwargs
		if isCallable(target) {
			keyargs = canonicalArgs(f.params, args, kwargs)
			keykwargs = nil
		}

		payload := altname + reprArgs(keyargs) + reprKwargs(keykwargs)
		return digestKey(payload) + version, nil
	}
}

func isCallable(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Func
}
