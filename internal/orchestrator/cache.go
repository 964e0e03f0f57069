package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// defaultCacheTTL is how long a cached query response stays servable.
const defaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	response model.QueryResponse
	storedAt time.Time
}

// responseCache is a TTL map keyed by composite query key. Eviction is
// lazy: expiry is checked on read and stale entries are dropped then.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResponseCache(ttl time.Duration) *responseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &responseCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *responseCache) get(key string, now time.Time) (model.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return model.QueryResponse{}, false
	}
	if now.Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return model.QueryResponse{}, false
	}
	return e.response, true
}

func (c *responseCache) put(key string, resp model.QueryResponse, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{response: resp, storedAt: now}
}

// cacheKey derives a deterministic key from the query identity fields.
// json.Marshal sorts map keys, so equal contexts serialize identically.
func cacheKey(q model.QueryRequest) string {
	ctxJSON, _ := json.Marshal(q.Context)
	h := sha256.New()
	h.Write([]byte(q.SubjectID))
	h.Write([]byte{0})
	h.Write([]byte(q.Question))
	h.Write([]byte{0})
	h.Write(ctxJSON)
	return hex.EncodeToString(h.Sum(nil))
}
