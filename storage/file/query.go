package file

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/storage"
)

// Query implements storage.QueryStore as an in-memory scan over the
// cached catalog. It is the fallback the query package (C11) uses
// when the document store is disabled or unreachable, so it applies
// the same predicate set as mongostore rather than a reduced one.
func (s *Store) Query(ctx context.Context, p storage.Predicate) ([]eventmodel.Event, int, error) {
	cat, ok, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}

	now := time.Now()
	matched := make([]eventmodel.Event, 0, len(cat.Gigs))
	for _, e := range cat.Gigs {
		if matchesPredicate(e, p, now) {
			matched = append(matched, e)
		}
	}

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "date"
	}
	sortEvents(matched, sortBy)

	total := len(matched)
	page, limit := p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []eventmodel.Event{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// GetByID returns a single catalog entry by id.
func (s *Store) GetByID(ctx context.Context, id string) (eventmodel.Event, bool, error) {
	cat, ok, err := s.LoadCatalog(ctx)
	if err != nil || !ok {
		return eventmodel.Event{}, false, err
	}
	for _, e := range cat.Gigs {
		if e.ID == id {
			return e, true, nil
		}
	}
	return eventmodel.Event{}, false, nil
}

func matchesPredicate(e eventmodel.Event, p storage.Predicate, now time.Time) bool {
	if p.City != "" && !strings.EqualFold(e.Venue.City, p.City) {
		return false
	}
	if p.VenueName != "" && !strings.EqualFold(e.Venue.Name, p.VenueName) {
		return false
	}
	if p.Source != "" && e.Source != p.Source {
		return false
	}
	if p.TagContains != "" && !containsFold(e.Tags, p.TagContains) {
		return false
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		haystack := strings.ToLower(strings.Join(append([]string{e.Title, e.Venue.Name}, append(append([]string{}, e.Artists...), e.Tags...)...), " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if p.FutureOnly && p.DateFrom.IsZero() && e.DateStart.Before(now) {
		return false
	}
	if !p.DateFrom.IsZero() && e.DateStart.Before(p.DateFrom) {
		return false
	}
	if !p.DateTo.IsZero() && e.DateStart.After(p.DateTo) {
		return false
	}
	if p.PriceMax != nil {
		if e.Price.Min == nil || *e.Price.Min > *p.PriceMax {
			return false
		}
	}
	if p.PriceMin != nil {
		if e.Price.Max == nil || *e.Price.Max < *p.PriceMin {
			return false
		}
	}
	return true
}

func containsFold(tags []string, needle string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, needle) {
			return true
		}
	}
	return false
}

func sortEvents(events []eventmodel.Event, sortBy string) {
	switch sortBy {
	case "venue":
		sort.Slice(events, func(i, j int) bool { return events[i].Venue.Name < events[j].Venue.Name })
	case "name":
		sort.Slice(events, func(i, j int) bool { return events[i].Title < events[j].Title })
	default: // "date"
		sort.Slice(events, func(i, j int) bool { return events[i].DateStart.Before(events[j].DateStart) })
	}
}
