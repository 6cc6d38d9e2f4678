// Package cache implements the tiered hot/warm query cache (C10): two
// size-bounded LRU tiers, single-flight miss coalescing,
// promotion-by-frequency, prefetch, warming, and city-scoped
// invalidation.
package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key identifies one cached query result by the dimensions the list
// query varies on (§4.10).
type Key struct {
	City      string
	Page      int
	Limit     int
	TimeRange string
	SortBy    string
	Filters   map[string]string
}

// Serialize produces a deterministic string encoding of the key,
// sorting Filters so equal filter sets always serialize identically
// regardless of map iteration order.
func (k Key) Serialize() string {
	var b strings.Builder
	b.WriteString("city=")
	b.WriteString(strings.ToLower(strings.TrimSpace(k.City)))
	b.WriteString("|page=")
	b.WriteString(strconv.Itoa(k.Page))
	b.WriteString("|limit=")
	b.WriteString(strconv.Itoa(k.Limit))
	b.WriteString("|timeRange=")
	b.WriteString(k.TimeRange)
	b.WriteString("|sortBy=")
	b.WriteString(k.SortBy)
	b.WriteString("|filters=")

	if len(k.Filters) > 0 {
		names := make([]string, 0, len(k.Filters))
		for name := range k.Filters {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, fmt.Sprintf("%s=%s", name, k.Filters[name]))
		}
		b.WriteString(strings.Join(pairs, ","))
	}

	return b.String()
}
