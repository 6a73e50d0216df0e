package client

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CacheEntry is a stored chat completion body.
type CacheEntry struct {
	Model    string          `json:"model"`
	Body     json.RawMessage `json:"body"`
	StoredAt time.Time       `json:"stored_at"`
}

// cacheData is the on-disk JSON structure.
type cacheData struct {
	Version   int                   `json:"v"`
	Responses map[string]CacheEntry `json:"responses"`
}

const (
	cacheVersion  = 1
	cacheFileName = "responses.json"
)

// ResponseCache persists request-hash to response mappings on disk so an
// identical edit request is not paid for twice. If no writable directory is
// found, it operates in-memory only.
type ResponseCache struct {
	mu       sync.Mutex
	dir      string // empty string = in-memory only
	data     cacheData
	inMemory map[string]CacheEntry
}

// NewResponseCache probes for a writable cache directory using the cascade:
//  1. $TMPDIR/aisheets/ (or os.TempDir()/aisheets/)
//  2. .aisheets/ in cwd
//  3. in-memory only (no persistence)
func NewResponseCache() *ResponseCache {
	rc := &ResponseCache{
		inMemory: make(map[string]CacheEntry),
	}

	// Tier 1: tmpdir
	if dir := filepath.Join(os.TempDir(), "aisheets"); probeWritable(dir) {
		rc.dir = dir
		rc.load()
		return rc
	}

	// Tier 2: cwd/.aisheets
	if cwd, err := os.Getwd(); err == nil {
		if dir := filepath.Join(cwd, ".aisheets"); probeWritable(dir) {
			rc.dir = dir
			rc.load()
			return rc
		}
	}

	// Tier 3: in-memory only
	return rc
}

// Get looks up a cached response by request hash.
func (rc *ResponseCache) Get(key string) (CacheEntry, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.dir != "" {
		e, ok := rc.data.Responses[key]
		return e, ok
	}
	e, ok := rc.inMemory[key]
	return e, ok
}

// Put stores a response and persists to disk if possible.
func (rc *ResponseCache) Put(key string, entry CacheEntry) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.dir != "" {
		rc.data.Responses[key] = entry
		rc.save()
	} else {
		rc.inMemory[key] = entry
	}
}

// Evict removes a cached response.
func (rc *ResponseCache) Evict(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.dir != "" {
		delete(rc.data.Responses, key)
		rc.save()
	} else {
		delete(rc.inMemory, key)
	}
}

// HashRequest computes the cache key for a request body: "sha256:<hex>@<baseURL>".
func HashRequest(payload []byte, baseURL string) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:]) + "@" + baseURL
}

func (rc *ResponseCache) load() {
	raw, err := os.ReadFile(filepath.Join(rc.dir, cacheFileName))
	if err != nil {
		rc.data = cacheData{Version: cacheVersion, Responses: make(map[string]CacheEntry)}
		return
	}
	if err := json.Unmarshal(raw, &rc.data); err != nil || rc.data.Version != cacheVersion {
		rc.data = cacheData{Version: cacheVersion, Responses: make(map[string]CacheEntry)}
		return
	}
	if rc.data.Responses == nil {
		rc.data.Responses = make(map[string]CacheEntry)
	}
}

func (rc *ResponseCache) save() {
	if rc.dir == "" {
		return
	}
	_ = os.MkdirAll(rc.dir, 0o700)
	raw, err := json.MarshalIndent(rc.data, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(rc.dir, cacheFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}

// probeWritable tries to create the directory and write a probe file.
func probeWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
