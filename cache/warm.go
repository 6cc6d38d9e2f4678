package cache

import (
	"context"
	"time"
)

// prefetchDebounce is how long after a page N read the page N+1
// prefetch fires. Each read schedules its own prefetch; a rapid
// sequence of page turns is not coalesced into one.
const prefetchDebounce = 100 * time.Millisecond

// warmingInterRequestDelay spaces warming requests so a cold start
// doesn't spike upstream/storage load.
const warmingInterRequestDelay = 50 * time.Millisecond

// maxWarmCities bounds how many cities the warmer touches per pass.
const maxWarmCities = 10

// warmPresets are the time-range presets warmed for each city/page.
var warmPresets = []string{"today", "week", "month"}

// Prefetch asynchronously loads the next page for key after
// prefetchDebounce, storing it via the normal Get path so a
// subsequent real request for that page is already warm. Call sites
// should not block on this.
func (c *Cache) Prefetch(ctx context.Context, key Key, fetch func(Key) Fetch) {
	next := key
	next.Page = key.Page + 1

	go func() {
		t := time.NewTimer(prefetchDebounce)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		_, _, _ = c.Get(ctx, next, fetch(next))
	}()
}

// WarmCities proactively populates the cache for up to maxWarmCities
// cities, pages 1-3, across the today/week/month presets, pacing
// requests by warmingInterRequestDelay. Intended for scheduled
// off-peak warming, not the request path.
func (c *Cache) WarmCities(ctx context.Context, cities []string, fetch func(Key) Fetch) error {
	if len(cities) > maxWarmCities {
		cities = cities[:maxWarmCities]
	}

	for _, city := range cities {
		for page := 1; page <= hotPageCeiling; page++ {
			for _, preset := range warmPresets {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				key := Key{City: city, Page: page, Limit: 20, TimeRange: preset, SortBy: "date"}
				if _, _, err := c.Get(ctx, key, fetch(key)); err != nil {
					return err
				}
				time.Sleep(warmingInterRequestDelay)
			}
		}
	}
	return nil
}
