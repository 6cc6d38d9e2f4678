// Package trust implements per-source trust scoring and the
// field-level merge routine used to collapse duplicate events into one
// canonical record, per §4.6.
package trust

import (
	"sort"
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
)

// Scores maps source name to a trust score in [0, 100]. Unknown
// sources fall back to DefaultScore.
type Scores struct {
	byName       map[string]int
	DefaultScore int
}

// NewScores builds a Scores table from overrides, falling back to
// defaultScore (clamped to [0,100]) for any source not listed.
func NewScores(overrides map[string]int, defaultScore int) Scores {
	if defaultScore < 0 {
		defaultScore = 0
	}
	if defaultScore > 100 {
		defaultScore = 100
	}
	byName := make(map[string]int, len(overrides))
	for k, v := range overrides {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		byName[k] = v
	}
	return Scores{byName: byName, DefaultScore: defaultScore}
}

func (s Scores) For(source string) int {
	if v, ok := s.byName[source]; ok {
		return v
	}
	return s.DefaultScore
}

// MostTrusted returns the event whose source has the highest trust
// score; ties break by latest UpdatedAt, then lexicographic source.
func MostTrusted(events []eventmodel.Event, scores Scores) eventmodel.Event {
	best := events[0]
	bestScore := scores.For(best.Source)
	for _, e := range events[1:] {
		score := scores.For(e.Source)
		switch {
		case score > bestScore:
			best, bestScore = e, score
		case score == bestScore:
			if e.UpdatedAt.After(best.UpdatedAt) {
				best = e
			} else if e.UpdatedAt.Equal(best.UpdatedAt) && e.Source < best.Source {
				best = e
			}
		}
	}
	return best
}

// Merge collapses a group of duplicate events into one canonical
// record per §4.6: scalar fields come from the most-trusted source
// (filling gaps from the next-most-trusted provider of that field),
// set-valued fields union preserving first-occurrence order, Hash is
// recomputed from the merged content, and ID is recomputed as the
// composite key of the result.
func Merge(events []eventmodel.Event, scores Scores) eventmodel.Event {
	ranked := rankByTrust(events, scores)
	out := ranked[0].Clone()

	for _, candidate := range ranked[1:] {
		if out.Title == "" {
			out.Title = candidate.Title
		}
		if out.Status == "" {
			out.Status = candidate.Status
		}
		if out.TicketsURL == "" {
			out.TicketsURL = candidate.TicketsURL
		}
		if out.EventURL == "" {
			out.EventURL = candidate.EventURL
		}
		if out.Venue.Name == "" {
			out.Venue.Name = candidate.Venue.Name
		}
		if out.Venue.Address == "" {
			out.Venue.Address = candidate.Venue.Address
		}
		if out.Venue.City == "" {
			out.Venue.City = candidate.Venue.City
		}
		if out.Venue.Country == "" {
			out.Venue.Country = candidate.Venue.Country
		}
		if out.Venue.Lat == nil {
			out.Venue.Lat = candidate.Venue.Lat
		}
		if out.Venue.Lng == nil {
			out.Venue.Lng = candidate.Venue.Lng
		}
		if out.Price.Min == nil {
			out.Price.Min = candidate.Price.Min
		}
		if out.Price.Max == nil {
			out.Price.Max = candidate.Price.Max
		}
		if out.Price.Currency == "" {
			out.Price.Currency = candidate.Price.Currency
		}
		if out.AgeRestriction == "" {
			out.AgeRestriction = candidate.AgeRestriction
		}
	}

	out.Artists = unionPreservingOrder(events, func(e eventmodel.Event) []string { return e.Artists })
	out.Tags = unionPreservingOrder(events, func(e eventmodel.Event) []string { return e.Tags })
	out.Images = unionPreservingOrder(events, func(e eventmodel.Event) []string { return e.Images })

	out.FirstSeenAt = minTime(events, func(e eventmodel.Event) *time.Time { return e.FirstSeenAt })
	out.LastSeenAt = maxTime(events, func(e eventmodel.Event) *time.Time { return e.LastSeenAt })
	out.UpdatedAt = maxUpdatedAt(events)

	out.Hash = eventmodel.ContentHash(out)
	out.ID = eventmodel.CompositeKey(out)

	return out
}

// rankByTrust orders events by trust score descending, ties by
// UpdatedAt descending then source ascending — the same ordering
// MostTrusted's tie-break uses, generalized to the whole group so
// "next-most-trusted" gap-filling has a well-defined order.
func rankByTrust(events []eventmodel.Event, scores Scores) []eventmodel.Event {
	ranked := append([]eventmodel.Event(nil), events...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores.For(ranked[i].Source), scores.For(ranked[j].Source)
		if si != sj {
			return si > sj
		}
		if !ranked[i].UpdatedAt.Equal(ranked[j].UpdatedAt) {
			return ranked[i].UpdatedAt.After(ranked[j].UpdatedAt)
		}
		return ranked[i].Source < ranked[j].Source
	})
	return ranked
}

func unionPreservingOrder(events []eventmodel.Event, field func(eventmodel.Event) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range events {
		for _, v := range field(e) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func minTime(events []eventmodel.Event, field func(eventmodel.Event) *time.Time) *time.Time {
	var min *time.Time
	for _, e := range events {
		t := field(e)
		if t == nil {
			continue
		}
		if min == nil || t.Before(*min) {
			v := *t
			min = &v
		}
	}
	return min
}

func maxTime(events []eventmodel.Event, field func(eventmodel.Event) *time.Time) *time.Time {
	var max *time.Time
	for _, e := range events {
		t := field(e)
		if t == nil {
			continue
		}
		if max == nil || t.After(*max) {
			v := *t
			max = &v
		}
	}
	return max
}

func maxUpdatedAt(events []eventmodel.Event) time.Time {
	max := events[0].UpdatedAt
	for _, e := range events[1:] {
		if e.UpdatedAt.After(max) {
			max = e.UpdatedAt
		}
	}
	return max
}
