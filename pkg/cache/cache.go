// Package cache implements a dual-tier (memory + file) TTL cache for
// search results. Expiry is checked lazily on read; there is no background
// eviction sweep. Cache failures are logged and swallowed so a cache outage
// degrades to always-miss behavior.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchbridge/searchbridge/pkg/filestore"
)

// DefaultMaxAge is how long a cached result stays fresh.
const DefaultMaxAge = 24 * time.Hour

// Config controls the cache tiers.
type Config struct {
	// Memory toggles the in-process tier.
	Memory *bool `yaml:"memory"`
	// Disk toggles the durable file tier.
	Disk *bool `yaml:"disk"`
	// Dir is the durable tier directory.
	Dir string `yaml:"dir"`
	// MaxAgeSecs is the freshness window in seconds.
	MaxAgeSecs int `yaml:"max_age_seconds"`
}

// diskItem is the JSON envelope written to cache files. Freshness is judged
// by file modification time; the embedded timestamp is informational.
type diskItem struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type memEntry struct {
	storedAt time.Time
	data     []byte
}

// Cache stores serialized results keyed by content hash.
type Cache struct {
	memEnabled  bool
	diskEnabled bool
	dir         string
	maxAge      time.Duration
	log         zerolog.Logger
	files       *filestore.Store

	mu  sync.RWMutex
	mem map[string]memEntry

	// now is swapped out in tests.
	now func() time.Time
}

// New creates a cache from config, applying defaults for unset fields.
func New(cfg Config, log zerolog.Logger) *Cache {
	maxAge := DefaultMaxAge
	if cfg.MaxAgeSecs > 0 {
		maxAge = time.Duration(cfg.MaxAgeSecs) * time.Second
	}
	dir := cfg.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "searchbridge")
	}
	memEnabled := true
	if cfg.Memory != nil {
		memEnabled = *cfg.Memory
	}
	diskEnabled := true
	if cfg.Disk != nil {
		diskEnabled = *cfg.Disk
	}
	componentLog := log.With().Str("component", "cache").Logger()
	return &Cache{
		memEnabled:  memEnabled,
		diskEnabled: diskEnabled,
		dir:         dir,
		maxAge:      maxAge,
		log:         componentLog,
		files:       filestore.New(componentLog),
		mem:         make(map[string]memEntry),
		now:         time.Now,
	}
}

// Get returns the cached payload for key, or nil on a miss. A stale memory
// entry is evicted and falls through to the disk tier; a fresh disk entry is
// promoted into memory before returning.
func (c *Cache) Get(key string) []byte {
	now := c.now()

	if c.memEnabled {
		c.mu.RLock()
		entry, ok := c.mem[key]
		c.mu.RUnlock()
		if ok {
			if now.Sub(entry.storedAt) <= c.maxAge {
				return entry.data
			}
			c.mu.Lock()
			// Re-check under the write lock in case a concurrent Set refreshed it.
			if current, ok := c.mem[key]; ok && now.Sub(current.storedAt) > c.maxAge {
				delete(c.mem, key)
			}
			c.mu.Unlock()
		}
	}

	if !c.diskEnabled {
		return nil
	}

	path := c.filePath(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if now.Sub(info.ModTime()) > c.maxAge {
		return nil
	}
	raw, err := c.files.Read(path)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to read cache file")
		return nil
	}
	var item diskItem
	if err := json.Unmarshal(raw, &item); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache file")
		c.files.Delete(path)
		return nil
	}

	if c.memEnabled {
		c.mu.Lock()
		c.mem[key] = memEntry{storedAt: info.ModTime(), data: item.Data}
		c.mu.Unlock()
	}
	return item.Data
}

// Set writes the payload to every enabled tier. Durable-tier failures are
// logged and swallowed; a cache write must never fail the caller's request.
func (c *Cache) Set(key string, data []byte) {
	now := c.now()

	if c.memEnabled {
		c.mu.Lock()
		c.mem[key] = memEntry{storedAt: now, data: data}
		c.mu.Unlock()
	}

	if !c.diskEnabled {
		return
	}
	raw, err := json.Marshal(diskItem{Timestamp: now.UnixMilli(), Data: data})
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode cache item")
		return
	}
	if _, err := c.files.Save(c.filePath(key), raw, true); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to write cache file")
	}
}

// Clear empties the memory tier and deletes all cache files. A failure to
// delete an individual file is logged and does not abort the rest.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.mem = make(map[string]memEntry)
	c.mu.Unlock()

	if !c.diskEnabled {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		c.files.Delete(filepath.Join(c.dir, entry.Name()))
	}
	return nil
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}
