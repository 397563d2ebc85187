package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Backend type identifiers accepted by Config.Type.
const (
	TypeSimple     = "simple"
	TypeSturdy     = "sturdy"
	TypeNull       = "null"
	TypeRedis      = "redis"
	TypeMemcached  = "memcached"
	TypeFilesystem = "filesystem"
)

// Default configuration values, mirroring the historical defaults of the
// memoization layer this package descends from.
const (
	DefaultTimeout   = 300 * time.Second
	DefaultThreshold = 500
	DefaultKeyPrefix = "memoize_"
)

// Config is the configuration surface consumed by the engine and the backend
// factory. The engine itself only reads DefaultTimeout, KeyPrefix and
// Namespace; the remaining fields select and parameterize a backend.
type Config struct {
	// Type selects the storage backend.
	Type string

	// DefaultTimeout applies to writes whose callers did not set a timeout.
	DefaultTimeout time.Duration

	// Threshold caps the number of entries held by the bounded backends
	// (simple, sturdy, filesystem).
	Threshold int

	// KeyPrefix is prepended to every backend key.
	KeyPrefix string

	// Namespace seeds deterministic version-token generation. Two processes
	// sharing a namespace converge on identical version tokens without
	// coordination. Empty means purely random tokens.
	Namespace string

	// Dir is the storage directory for the filesystem backend.
	Dir string

	// RedisURL is the connection URL for the redis backend.
	RedisURL string

	// MemcachedServers lists host:port addresses for the memcached backend.
	MemcachedServers []string

	// NoNullWarning suppresses the warning logged when the null backend is
	// selected and caching is effectively disabled.
	NoNullWarning bool
}

// DefaultConfig returns a Config populated with the in-process backend and
// the historical defaults.
func DefaultConfig() Config {
	return Config{
		Type:           TypeSimple,
		DefaultTimeout: DefaultTimeout,
		Threshold:      DefaultThreshold,
		KeyPrefix:      DefaultKeyPrefix,
	}
}

// Normalize fills zero-valued fields with defaults.
func (c Config) Normalize() Config {
	if c.Type == "" {
		c.Type = TypeSimple
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	return c
}

// Validate checks whether the configuration values are usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(
			TypeSimple, TypeSturdy, TypeNull, TypeRedis, TypeMemcached, TypeFilesystem,
		)),
		validation.Field(&c.Threshold, validation.Min(0)),
		validation.Field(&c.Dir,
			validation.Required.When(c.Type == TypeFilesystem).Error("required for the filesystem backend")),
		validation.Field(&c.RedisURL,
			validation.Required.When(c.Type == TypeRedis).Error("required for the redis backend")),
		validation.Field(&c.MemcachedServers,
			validation.Required.When(c.Type == TypeMemcached).Error("required for the memcached backend")),
	)
}
