package backends

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-memoize/cache"
)

const fileSuffix = ".memo"

// fileEntry is the on-disk envelope for one cached value. ExpiresAt is a
// unix timestamp in nanoseconds; zero never expires.
type fileEntry struct {
	ExpiresAt int64 `msgpack:"e"`
	Value     any   `msgpack:"v"`
}

// Filesystem is a backend storing one msgpack file per key under a
// directory, with hashed filenames so arbitrary keys map to safe paths.
// Expiry is enforced on read; a threshold bounds the file count.
type Filesystem struct {
	dir            string
	threshold      int
	defaultTimeout time.Duration
}

// NewFilesystem creates a Filesystem backend rooted at dir, creating the
// directory if needed.
func NewFilesystem(dir string, threshold int, defaultTimeout time.Duration) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{
		dir:            dir,
		threshold:      threshold,
		defaultTimeout: defaultTimeout,
	}, nil
}

func (f *Filesystem) path(key string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%016x%s", xxhash.Sum64String(key), fileSuffix))
}

func (f *Filesystem) expiresAt(timeout time.Duration) int64 {
	if timeout == 0 {
		timeout = f.defaultTimeout
	}
	if timeout <= 0 {
		return 0
	}
	return time.Now().Add(timeout).UnixNano()
}

func (f *Filesystem) read(path string) (fileEntry, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileEntry{}, false, nil
	}
	if err != nil {
		return fileEntry{}, false, err
	}

	var e fileEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return fileEntry{}, false, err
	}
	if e.ExpiresAt != 0 && time.Now().UnixNano() > e.ExpiresAt {
		os.Remove(path)
		return fileEntry{}, false, nil
	}
	return e, true, nil
}

func (f *Filesystem) write(path string, e fileEntry) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *Filesystem) entryPaths() ([]string, error) {
	dirents, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != fileSuffix {
			continue
		}
		paths = append(paths, filepath.Join(f.dir, d.Name()))
	}
	return paths, nil
}

func (f *Filesystem) prune() error {
	if f.threshold <= 0 {
		return nil
	}
	paths, err := f.entryPaths()
	if err != nil {
		return err
	}
	if len(paths) < f.threshold {
		return nil
	}

	remaining := paths[:0]
	for _, path := range paths {
		if _, ok, err := f.read(path); err == nil && !ok {
			continue
		}
		remaining = append(remaining, path)
	}

	for i := 0; len(remaining)-i >= f.threshold; i++ {
		os.Remove(remaining[i])
	}
	return nil
}

func (f *Filesystem) Get(_ context.Context, key string) (cache.Result, error) {
	e, ok, err := f.read(f.path(key))
	if err != nil {
		return cache.Result{}, err
	}
	if !ok {
		return cache.Absent(), nil
	}
	return cache.Hit(e.Value), nil
}

func (f *Filesystem) Set(_ context.Context, key string, value any, timeout time.Duration) error {
	if err := f.prune(); err != nil {
		return err
	}
	return f.write(f.path(key), fileEntry{ExpiresAt: f.expiresAt(timeout), Value: value})
}

func (f *Filesystem) Add(ctx context.Context, key string, value any, timeout time.Duration) error {
	if _, ok, err := f.read(f.path(key)); err != nil {
		return err
	} else if ok {
		return nil
	}
	return f.Set(ctx, key, value, timeout)
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (f *Filesystem) GetMany(ctx context.Context, keys ...string) ([]cache.Result, error) {
	results := make([]cache.Result, len(keys))
	for i, key := range keys {
		res, err := f.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (f *Filesystem) SetMany(ctx context.Context, items map[string]any, timeout time.Duration) error {
	for key, value := range items {
		if err := f.Set(ctx, key, value, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filesystem) DeleteMany(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := f.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filesystem) Clear(_ context.Context) error {
	paths, err := f.entryPaths()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
