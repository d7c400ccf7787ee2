// Package diskcache stores fetched image bytes on disk so they survive
// process restarts. Entries are keyed by resource URL and pruned oldest
// access first once the directory grows past its byte budget.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultBudget bounds the cache directory when no budget is given.
const DefaultBudget int64 = 256 << 20 // 256 MiB

// Cache is a directory of encoded image files. Get is lock-free; writes
// and pruning are serialized. A Cache assumes it owns its directory.
type Cache struct {
	dir    string
	budget int64

	mu sync.Mutex
}

// New opens a disk cache rooted at dir, creating the directory when
// needed. A non-positive budget applies DefaultBudget.
func New(dir string, budget int64) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("diskcache: empty directory")
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("diskcache: create %s: %w", dir, err)
	}
	return &Cache{dir: dir, budget: budget}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Budget returns the directory byte bound.
func (c *Cache) Budget() int64 { return c.budget }

// Get returns the stored bytes for url. Any read failure is a miss; the
// caller falls back to the network. A hit refreshes the entry's access
// time so pruning approximates least recently used.
func (c *Cache) Get(url string) ([]byte, bool) {
	path := c.path(url)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	now := time.Now()
	os.Chtimes(path, now, now)
	return data, true
}

// Put stores bytes for url. The entry is written to a temporary file and
// renamed into place so concurrent readers never observe a partial file,
// then the directory is pruned back to its budget.
func (c *Cache) Put(url string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("diskcache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("diskcache: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("diskcache: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(url)); err != nil {
		return fmt.Errorf("diskcache: rename into place: %w", err)
	}
	success = true

	return c.prune()
}

// Remove deletes the entry for url if present.
func (c *Cache) Remove(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path(url))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("diskcache: remove entry: %w", err)
	}
	return nil
}

// Size returns the total bytes currently stored.
func (c *Cache) Size() (int64, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("diskcache: read dir: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// prune removes oldest-modified files until the directory fits the
// budget. Orphaned temp files count as entries and age out the same way.
// Called with mu held.
func (c *Cache) prune() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("diskcache: read dir: %w", err)
	}

	type file struct {
		path string
		size int64
		mod  time.Time
	}
	var files []file
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, file{
			path: filepath.Join(c.dir, entry.Name()),
			size: info.Size(),
			mod:  info.ModTime(),
		})
		total += info.Size()
	}
	if total <= c.budget {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files {
		if total <= c.budget {
			break
		}
		if err := os.Remove(f.path); err != nil {
			continue
		}
		total -= f.size
	}
	return nil
}

// path maps url to a stable filename. Hashing keeps names safe for the
// filesystem regardless of the url's length or characters.
func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".img")
}
