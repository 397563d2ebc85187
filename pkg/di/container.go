package di

import (
	"log/slog"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/internal/backends"
	"github.com/goliatone/go-memoize/memoize"
)

// Container provides dependency injection for the memoization components. It
// owns the backend selected by configuration and the Memoizer built over it.
type Container struct {
	backend  cache.Backend
	memoizer *memoize.Memoizer
	config   cache.Config
}

// NewContainer creates a container from the provided configuration: the
// backend is constructed by the factory and the memoizer wired over it.
func NewContainer(cfg cache.Config, opts ...memoize.Option) (*Container, error) {
	cfg = cfg.Normalize()

	backend, err := backends.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Container{
		backend:  backend,
		memoizer: memoize.New(backend, cfg, opts...),
		config:   cfg,
	}, nil
}

// NewContainerWithDefaults creates a container using the default in-process
// configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// Memoizer returns the singleton memoizer instance.
func (c *Container) Memoizer() *memoize.Memoizer {
	return c.memoizer
}

// Backend returns the singleton backend instance, for advanced use cases
// that operate on raw keys.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// WithLogger forwards a structured logger to the memoizer. Convenience
// re-export so callers wiring a container do not import memoize for one
// option.
func WithLogger(l *slog.Logger) memoize.Option {
	return memoize.WithLogger(l)
}
