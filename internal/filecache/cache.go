// Package filecache implements an LRU, TTL-bounded cache of file reads
// rooted at a directory.
package filecache

import (
	"container/list"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Config bounds the cache's footprint.
type Config struct {
	MaxEntries        int
	MaxCacheSize      int64
	MaxCachedFileSize int64
	EntryLifetime     time.Duration
}

// DefaultConfig matches the reference's compiled-in constants.
func DefaultConfig() Config {
	return Config{
		MaxEntries:        1024,
		MaxCacheSize:      1 << 30,   // 1 GiB
		MaxCachedFileSize: 128 << 20, // 128 MiB
		EntryLifetime:     5 * time.Minute,
	}
}

// Cache is safe for concurrent use; every access, including a cache
// hit, mutates LRU order and so is taken under mu.
type Cache struct {
	mu     sync.Mutex
	root   string
	cfg    Config
	list   *list.List
	lookup map[string]*list.Element
	size   int64
	log    *slog.Logger
}

// New builds a cache rooted at root. root is resolved to an absolute,
// weakly-canonical path once at construction; it does not need to
// exist yet.
func New(root string, cfg Config, log *slog.Logger) (*Cache, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filecache: resolve root: %w", err)
	}
	abs, err = weaklyCanonical(abs)
	if err != nil {
		return nil, fmt.Errorf("filecache: resolve root: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		root:   abs,
		cfg:    cfg,
		list:   list.New(),
		lookup: make(map[string]*list.Element),
		log:    log,
	}, nil
}

// Root returns the cache's canonicalized root directory.
func (c *Cache) Root() string { return c.root }

// GetOrRead resolves uriPath under the cache root and returns its
// contents, either from the LRU or freshly read from disk. A resolve
// failure (empty/relative path, or an escape past root) never touches
// the cache at all: only filesystem-level results are memoized.
func (c *Cache) GetOrRead(uriPath string) (*File, error) {
	path, err := c.resolve(uriPath)
	if err != nil {
		return nil, err
	}

	if f, err, ok := c.lookupFresh(path); ok {
		return f, err
	}

	file, rerr := readFile(path)
	if rerr != nil && !isCacheableError(rerr) {
		return nil, rerr
	}

	e := &entry{path: path, lastAccessed: time.Now()}
	switch {
	case rerr == nil:
		e.status = statusOK
		e.file = *file
	case isNotFound(rerr):
		e.status = statusNotFound
	default: // ErrInvalidURI; readFile never returns it, so this is not reached in practice
		e.status = statusInvalidURI
	}

	// A file larger than MaxCachedFileSize is still served, just never
	// retained: caching it would let one large file alone blow the
	// cache's size budget.
	if e.status == statusOK && e.size() > c.cfg.MaxCachedFileSize {
		return file, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have cached this path while the lock was
	// released for readFile; replace its entry so the path maps to one.
	if old, ok := c.lookup[path]; ok {
		c.removeLocked(old)
	}
	elem := c.list.PushFront(e)
	c.lookup[path] = elem
	c.size += e.size()
	c.trimLocked()

	return e.result()
}

func (c *Cache) lookupFresh(path string) (*File, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.lookup[path]
	if !ok {
		return nil, nil, false
	}

	e := elem.Value.(*entry)
	if time.Since(e.lastAccessed) > c.cfg.EntryLifetime {
		c.removeLocked(elem)
		return nil, nil, false
	}

	e.lastAccessed = time.Now()
	c.list.MoveToFront(elem)
	f, err := e.result()
	return f, err, true
}

func (c *Cache) trimLocked() {
	for c.size > c.cfg.MaxCacheSize || int64(c.list.Len()) > int64(c.cfg.MaxEntries) {
		back := c.list.Back()
		if back == nil {
			break
		}
		c.removeLocked(back)
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.size -= e.size()
	delete(c.lookup, e.path)
	c.list.Remove(elem)
	if e.size() > 0 {
		c.log.Debug("cache entry evicted",
			"path", e.path, "bytes_freed", humanize.Bytes(uint64(e.size())))
	}
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func isCacheableError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidURI)
}

// readFile performs the actual filesystem read behind a cache miss.
func readFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrIOError, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOError, err)
	}

	return &File{
		Contents:     data,
		MimeType:     mimeType(path),
		LastModified: info.ModTime(),
		Path:         path,
	}, nil
}
