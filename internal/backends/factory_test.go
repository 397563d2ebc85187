package backends

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-memoize/cache"
)

func TestFactoryConstructsByType(t *testing.T) {
	tests := []struct {
		name string
		cfg  cache.Config
		want any
	}{
		{"simple", cache.Config{Type: cache.TypeSimple}, (*Simple)(nil)},
		{"sturdy", cache.Config{Type: cache.TypeSturdy}, (*Sturdy)(nil)},
		{"null", cache.Config{Type: cache.TypeNull}, (*Null)(nil)},
		{"filesystem", cache.Config{Type: cache.TypeFilesystem, Dir: t.TempDir()}, (*Filesystem)(nil)},
		{"redis", cache.Config{Type: cache.TypeRedis, RedisURL: "redis://localhost:6379/0"}, (*Redis)(nil)},
		{"memcached", cache.Config{Type: cache.TypeMemcached, MemcachedServers: []string{"localhost:11211"}}, (*Memcached)(nil)},
		{"empty defaults to simple", cache.Config{}, (*Simple)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if reflect.TypeOf(backend) != reflect.TypeOf(tt.want) {
				t.Errorf("backend is %T, want %T", backend, tt.want)
			}
		})
	}
}

func TestFactoryRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  cache.Config
	}{
		{"unknown type", cache.Config{Type: "bogus"}},
		{"filesystem without dir", cache.Config{Type: cache.TypeFilesystem}},
		{"redis without url", cache.Config{Type: cache.TypeRedis}},
		{"redis with malformed url", cache.Config{Type: cache.TypeRedis, RedisURL: "://nope"}},
		{"memcached without servers", cache.Config{Type: cache.TypeMemcached}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Errorf("New(%+v) succeeded, want error", tt.cfg)
			}
		})
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "Type", Message: "bogus is not a valid backend"}
	want := "config error in field Type: bogus is not a valid backend"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
