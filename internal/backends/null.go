package backends

import (
	"context"
	"time"

	"github.com/goliatone/go-memoize/cache"
)

// Null is a backend that stores nothing: every read misses and every write
// succeeds. It disables memoization without touching call sites.
type Null struct{}

// NewNull creates a Null backend.
func NewNull() *Null {
	return &Null{}
}

func (Null) Get(context.Context, string) (cache.Result, error) {
	return cache.Absent(), nil
}

func (Null) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (Null) Add(context.Context, string, any, time.Duration) error {
	return nil
}

func (Null) Delete(context.Context, string) error {
	return nil
}

func (Null) GetMany(_ context.Context, keys ...string) ([]cache.Result, error) {
	results := make([]cache.Result, len(keys))
	for i := range results {
		results[i] = cache.Absent()
	}
	return results, nil
}

func (Null) SetMany(context.Context, map[string]any, time.Duration) error {
	return nil
}

func (Null) DeleteMany(context.Context, ...string) error {
	return nil
}

func (Null) Clear(context.Context) error {
	return nil
}
