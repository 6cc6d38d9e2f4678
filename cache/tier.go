package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// entry wraps a cached value with its tier-assigned expiry.
type entry struct {
	value     any
	expiresAt time.Time
}

// tier is one size-bounded LRU cache with a fixed TTL applied to every
// entry on write.
type tier struct {
	cache *lru.Cache
	ttl   time.Duration
}

func newTier(maxItems int, ttl time.Duration) (*tier, error) {
	c, err := lru.New(maxItems)
	if err != nil {
		return nil, err
	}
	return &tier{cache: c, ttl: ttl}, nil
}

// get returns the cached value if present and unexpired. An expired
// entry is evicted on read.
func (t *tier) get(key string) (any, bool) {
	raw, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if time.Now().After(e.expiresAt) {
		t.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (t *tier) set(key string, value any) {
	t.cache.Add(key, entry{value: value, expiresAt: time.Now().Add(t.ttl)})
}

func (t *tier) remove(key string) {
	t.cache.Remove(key)
}

func (t *tier) keys() []string {
	raw := t.cache.Keys()
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		out = append(out, k.(string))
	}
	return out
}

func (t *tier) len() int {
	return t.cache.Len()
}

func (t *tier) purge() {
	t.cache.Purge()
}
