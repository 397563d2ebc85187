package memoize

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// versionKeySuffix marks the backend keys holding version tokens.
const versionKeySuffix = "_memver"

// versionTokenLen is the length of a single version token.
const versionTokenLen = 6

type versionOp int

const (
	versionRead versionOp = iota
	versionReset
	versionDelete
)

func versionKey(namespace string) string {
	return namespace + versionKeySuffix
}

// makeVersionHash synthesizes a fresh version token. With a deployment
// namespace configured the token is derived from a name-based UUID, so
// independent processes sharing the namespace converge on identical tokens
// without coordination. Without one the token is random.
func (m *Memoizer) makeVersionHash() string {
	var id uuid.UUID
	switch {
	case strings.HasPrefix(m.config.Namespace, "http"):
		id = uuid.NewMD5(uuid.NameSpaceURL, []byte(m.config.Namespace))
	case m.config.Namespace != "":
		id = uuid.NewMD5(uuid.NameSpaceDNS, []byte(m.config.Namespace))
	default:
		id = uuid.New()
	}
	return base64.StdEncoding.EncodeToString(id[:])[:versionTokenLen]
}

// memoizeVersion reads, and when needed mutates, the version tokens scoping
// f's cache keys. It batches the function-level and instance-level version
// keys into one backend read and, when anything changed, one backend write
// carrying the memoized call's timeout.
//
// versionReset regenerates only the most specific token (instance if present,
// else function). versionDelete removes only the most specific version key
// and returns no version string. Both leave the other token untouched, so an
// instance-scoped invalidation never widens to the whole function.
func (m *Memoizer) memoizeVersion(ctx context.Context, f *Func, args []any, op versionOp, timeout time.Duration) (fname, version string, err error) {
	fname, instanceFname := f.namespaces(args)

	fetchKeys := []string{versionKey(fname)}
	if instanceFname != "" {
		fetchKeys = append(fetchKeys, versionKey(instanceFname))
	}

	if op == versionDelete {
		if err := m.backend.DeleteMany(ctx, fetchKeys[len(fetchKeys)-1]); err != nil {
			return fname, "", err
		}
		return fname, "", nil
	}

	results, err := m.backend.GetMany(ctx, fetchKeys...)
	if err != nil {
		return fname, "", err
	}

	tokens := make([]string, len(fetchKeys))
	for i, r := range results {
		if i < len(tokens) && r.OK() {
			tokens[i] = tokenString(r.Value)
		}
	}

	dirty := false
	for i := range tokens {
		if tokens[i] == "" {
			tokens[i] = m.makeVersionHash()
			dirty = true
		}
	}

	if op == versionReset {
		fetchKeys = fetchKeys[len(fetchKeys)-1:]
		tokens = []string{m.makeVersionHash()}
		dirty = true
	}

	if dirty {
		items := make(map[string]any, len(fetchKeys))
		for i, key := range fetchKeys {
			items[key] = tokens[i]
		}
		if err := m.backend.SetMany(ctx, items, timeout); err != nil {
			return fname, "", err
		}
	}

	return fname, strings.Join(tokens, ""), nil
}

// tokenString normalizes a stored version token. In-process backends hand the
// string back unchanged; codec-backed ones may return bytes.
func tokenString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
