package backends

import (
	"github.com/goliatone/go-memoize/cache"
)

// ConfigError reports an unusable backend configuration.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// New constructs the backend selected by cfg.Type. Unknown or unsupported
// types are a configuration error surfaced immediately, not attempted.
func New(cfg cache.Config) (cache.Backend, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case cache.TypeSimple:
		return NewSimple(cfg.Threshold, cfg.DefaultTimeout), nil
	case cache.TypeSturdy:
		return NewSturdy(cfg.Threshold, cfg.DefaultTimeout), nil
	case cache.TypeNull:
		return NewNull(), nil
	case cache.TypeRedis:
		return NewRedis(cfg.RedisURL, cfg.KeyPrefix, cfg.DefaultTimeout)
	case cache.TypeMemcached:
		return NewMemcached(cfg.MemcachedServers, cfg.KeyPrefix, cfg.DefaultTimeout), nil
	case cache.TypeFilesystem:
		return NewFilesystem(cfg.Dir, cfg.Threshold, cfg.DefaultTimeout)
	default:
		return nil, &ConfigError{Field: "Type", Message: cfg.Type + " is not a valid backend"}
	}
}
