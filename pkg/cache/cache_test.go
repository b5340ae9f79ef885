package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/ptr"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	return New(cfg, zerolog.Nop())
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, Config{})
	c.Set("abc", []byte(`{"content":"hello"}`))

	got := c.Get("abc")
	require.NotNil(t, got)
	assert.JSONEq(t, `{"content":"hello"}`, string(got))
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, Config{})
	assert.Nil(t, c.Get("nope"))
}

func TestMemoryExpiryEvictsLazily(t *testing.T) {
	c := newTestCache(t, Config{Disk: ptr.Ptr(false), MaxAgeSecs: 60})
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("k", []byte(`1`))
	current = current.Add(59 * time.Second)
	require.NotNil(t, c.Get("k"))

	current = current.Add(2 * time.Second)
	assert.Nil(t, c.Get("k"))
	assert.Empty(t, c.mem, "stale entry should be evicted on read")
}

func TestDiskExpiryUsesFileModTime(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Memory: ptr.Ptr(false), Dir: dir, MaxAgeSecs: 3600})
	c.Set("k", []byte(`"v"`))

	path := filepath.Join(dir, "k.json")
	require.FileExists(t, path)

	// Fresh file: hit.
	require.NotNil(t, c.Get("k"))

	// Backdate the file past max age: miss, even though the embedded
	// timestamp is untouched.
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	assert.Nil(t, c.Get("k"))
}

func TestDiskHitPromotesToMemory(t *testing.T) {
	dir := t.TempDir()
	writer := newTestCache(t, Config{Memory: ptr.Ptr(false), Dir: dir})
	writer.Set("k", []byte(`42`))

	reader := newTestCache(t, Config{Dir: dir})
	require.NotNil(t, reader.Get("k"))

	reader.mu.RLock()
	_, inMemory := reader.mem["k"]
	reader.mu.RUnlock()
	assert.True(t, inMemory, "disk hit should be promoted into the memory tier")
}

func TestCorruptDiskEntryIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Memory: ptr.Ptr(false), Dir: dir})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	assert.Nil(t, c.Get("bad"))
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))
}

func TestClearRemovesBothTiers(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Dir: dir})
	c.Set("a", []byte(`1`))
	c.Set("b", []byte(`2`))

	require.NoError(t, c.Clear())
	assert.Nil(t, c.Get("a"))
	assert.Nil(t, c.Get("b"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskWriteFailureIsSwallowed(t *testing.T) {
	c := newTestCache(t, Config{Dir: filepath.Join(t.TempDir(), "f")})
	// Make the cache dir path unusable by placing a file where the directory
	// should be.
	require.NoError(t, os.WriteFile(c.dir, []byte("x"), 0o644))

	c.Set("k", []byte(`1`)) // must not panic or return an error
	require.NotNil(t, c.Get("k"), "memory tier should still serve the entry")
}

func TestDiskEnvelopeShape(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Dir: dir})
	c.Set("k", []byte(`{"answer":1}`))

	raw, err := os.ReadFile(filepath.Join(dir, "k.json"))
	require.NoError(t, err)
	var item struct {
		Timestamp int64           `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &item))
	assert.Positive(t, item.Timestamp)
	assert.JSONEq(t, `{"answer":1}`, string(item.Data))
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("Capital of France", map[string]string{"provider": "perplexity", "model": "sonar-pro"})
	b := Key("  capital of FRANCE  ", map[string]string{"model": "sonar-pro", "provider": "perplexity"})
	assert.Equal(t, a, b, "key must be case/whitespace/order independent")

	c := Key("capital of france", map[string]string{"provider": "gemini", "model": "sonar-pro"})
	assert.NotEqual(t, a, c, "different options must produce different keys")
}
