package cache

import "strings"

// InvalidateResult reports the outcome of an invalidation call.
type InvalidateResult struct {
	Removed int
	Partial bool
}

// InvalidateCity removes every cached entry whose key's city component
// equals city from the hot tier, and — unless partial is set — from
// the warm tier too. A partial invalidation therefore leaves warm
// reads for city intact while forcing hot reads to miss.
func (c *Cache) InvalidateCity(city string, partial bool) InvalidateResult {
	match := "city=" + strings.ToLower(strings.TrimSpace(city)) + "|"

	removed := 0
	for _, key := range c.hot.keys() {
		if strings.HasPrefix(key, match) {
			c.hot.remove(key)
			removed++
		}
	}

	if !partial {
		for _, key := range c.warm.keys() {
			if strings.HasPrefix(key, match) {
				c.warm.remove(key)
				removed++
			}
		}
	}

	return InvalidateResult{Removed: removed, Partial: partial}
}
