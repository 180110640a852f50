package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/incr/internal/config"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/store"
)

// cacheBackend is where check keeps the query cache between runs.
type cacheBackend interface {
	// Load returns the saved cache file, or nil when there is none yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the saved cache file.
	Save(ctx context.Context, data []byte, rev engine.Revision) error
	// String names the backend in logs.
	String() string
	Close() error
}

// openCache picks the snapshot store when one is configured and the cache
// file otherwise.
func openCache(cfg config.CacheConfig, logger *slog.Logger) (cacheBackend, error) {
	if !cfg.UseStore() {
		return &fileCache{path: cfg.Path}, nil
	}
	st, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	return &snapshotCache{st: st, name: cfg.Snapshot}, nil
}

func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}
	return st, nil
}

type fileCache struct {
	path string
}

func (c *fileCache) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return data, nil
}

// Save replaces the file atomically through a temporary file.
func (c *fileCache) Save(_ context.Context, data []byte, _ engine.Revision) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".incr-cache-*")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (c *fileCache) String() string { return "file " + c.path }

func (c *fileCache) Close() error { return nil }

type snapshotCache struct {
	st   *store.Store
	name string
}

func (c *snapshotCache) Load(ctx context.Context) ([]byte, error) {
	snap, err := c.st.LoadSnapshot(ctx, c.name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

func (c *snapshotCache) Save(ctx context.Context, data []byte, rev engine.Revision) error {
	_, err := c.st.SaveSnapshot(ctx, store.Snapshot{Name: c.name, Data: data, Revision: int64(rev)})
	return err
}

func (c *snapshotCache) String() string { return "snapshot " + c.name }

func (c *snapshotCache) Close() error { return c.st.Close() }
