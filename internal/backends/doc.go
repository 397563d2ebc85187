// Package backends provides the storage adapters behind the cache.Backend
// contract: in-process (simple, sturdy), null, redis, memcached and
// filesystem, plus the config-driven factory that selects among them.
//
// Network and disk backends serialize values with msgpack; in-process
// backends store values as-is. Per-entry timeouts are honored by every
// adapter, enforced read-side where the underlying store cannot do it.
package backends
