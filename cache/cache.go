package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	hotMaxItems  = 100
	hotTTL       = 5 * time.Minute
	warmMaxItems = 500
	warmTTL      = 30 * time.Minute

	// promotionThreshold is the access count (within one clear window)
	// above which a warm entry is promoted into hot.
	promotionThreshold = 3

	// hotPageCeiling and warmPageCeiling bound which tier a page
	// belongs to; pages beyond warmPageCeiling bypass the cache.
	hotPageCeiling  = 3
	warmPageCeiling = 10
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	HotHits    int64
	WarmHits   int64
	Misses     int64
	Promotions int64
	Bypassed   int64
}

// Fetch produces the value for a cache miss. Implemented by the query
// package against storage.
type Fetch func(ctx context.Context) (any, error)

// Cache is the tiered hot/warm query cache described in spec.md §4.10.
type Cache struct {
	hot  *tier
	warm *tier

	group singleflight.Group

	freqMu sync.Mutex
	freq   map[string]int

	hotHits, warmHits, misses, promotions, bypassed atomic.Int64

	stopClear chan struct{}
}

// New builds a cache with the spec's fixed tier sizes/TTLs and starts
// the background goroutine that clears the frequency map once per
// warm-tier TTL interval (the "cold-tier interval" in §4.10).
func New() (*Cache, error) {
	hot, err := newTier(hotMaxItems, hotTTL)
	if err != nil {
		return nil, err
	}
	warm, err := newTier(warmMaxItems, warmTTL)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		hot:       hot,
		warm:      warm,
		freq:      make(map[string]int),
		stopClear: make(chan struct{}),
	}
	go c.clearFrequencyLoop()
	return c, nil
}

// Close stops the background frequency-clear goroutine.
func (c *Cache) Close() {
	close(c.stopClear)
}

func (c *Cache) clearFrequencyLoop() {
	ticker := time.NewTicker(warmTTL)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopClear:
			return
		case <-ticker.C:
			c.freqMu.Lock()
			c.freq = make(map[string]int)
			c.freqMu.Unlock()
		}
	}
}

// Get resolves key, checking the tier(s) appropriate to its page
// number, coalescing concurrent misses via single-flight, and
// promoting frequently-accessed warm entries into hot.
//
// Returns the value, the tier it was served from ("hot", "warm", or
// "miss"), and any error from fetch.
func (c *Cache) Get(ctx context.Context, key Key, fetch Fetch) (any, string, error) {
	if key.Page > warmPageCeiling {
		c.bypassed.Add(1)
		v, err := fetch(ctx)
		return v, "miss", err
	}

	serialized := key.Serialize()

	if key.Page <= hotPageCeiling {
		if v, ok := c.hot.get(serialized); ok {
			c.hotHits.Add(1)
			return v, "hot", nil
		}
	}

	if v, ok := c.warm.get(serialized); ok {
		c.warmHits.Add(1)
		if c.bumpFrequency(serialized) {
			c.hot.set(serialized, v)
			c.promotions.Add(1)
		}
		return v, "warm", nil
	}

	v, err, _ := c.group.Do(serialized, func() (any, error) { return fetch(ctx) })
	if err != nil {
		return nil, "miss", err
	}
	c.misses.Add(1)

	if key.Page <= hotPageCeiling {
		c.hot.set(serialized, v)
	} else {
		c.warm.set(serialized, v)
		c.bumpFrequency(serialized)
	}

	return v, "miss", nil
}

// bumpFrequency increments the access count for key and reports
// whether it just crossed promotionThreshold.
func (c *Cache) bumpFrequency(key string) bool {
	c.freqMu.Lock()
	defer c.freqMu.Unlock()
	c.freq[key]++
	return c.freq[key] == promotionThreshold+1
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	return Stats{
		HotHits:    c.hotHits.Load(),
		WarmHits:   c.warmHits.Load(),
		Misses:     c.misses.Load(),
		Promotions: c.promotions.Load(),
		Bypassed:   c.bypassed.Load(),
	}
}
