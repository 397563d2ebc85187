package backends

import (
	"github.com/vmihailenco/msgpack/v5"
)

// encodeValue serializes a value for backends that cross a process boundary
// (redis, memcached, filesystem). In-process backends store values as-is.
func encodeValue(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// decodeValue is the inverse of encodeValue. Decoded values come back as
// msgpack's generic forms (int64, map[string]any, ...), not the original Go
// types; callers comparing round-tripped values must account for that.
func decodeValue(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
