package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File is a Cache persisted as a JSON object. Every mutation rewrites the
// file atomically through a temp file and rename.
type File struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	logger *slog.Logger
}

var _ Cache = (*File)(nil)

// OpenFile loads the cache at path, creating its directory when needed. A
// missing file yields an empty cache.
func OpenFile(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	f := &File{path: path, data: make(map[string]string), logger: logger}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		logger.Warn("discarding corrupt cache file", "path", path, "error", err)
		f.data = make(map[string]string)
	}
	return f, nil
}

// DefaultPath returns $XDG_CACHE_HOME/breeze/cache.json, falling back to
// ~/.cache/breeze/cache.json.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(dir, "breeze", "cache.json"), nil
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *File) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.data[key]; ok && cur == value {
		return
	}
	f.data[key] = value
	f.flush()
}

func (f *File) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return
	}
	delete(f.data, key)
	f.flush()
}

// flush must be called with f.mu held.
func (f *File) flush() {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		f.logger.Warn("encode cache", "error", err)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".cache-*.json")
	if err != nil {
		f.logger.Warn("write cache", "path", f.path, "error", err)
		return
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		f.logger.Warn("write cache", "path", f.path, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		f.logger.Warn("write cache", "path", f.path, "error", err)
		return
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		f.logger.Warn("write cache", "path", f.path, "error", err)
	}
}
