// Package query implements the read-only query surface (C11): list
// and detail reads over the catalog, validated, paginated, sorted,
// and served through the tiered cache.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gigcatalog/ingestor/cache"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/storage"
	"github.com/rs/zerolog"
)

// timeRangePresets maps the allowed timeRange values to the window,
// starting now, applied against DateStart (§4.10/§4.11).
var timeRangePresets = map[string]time.Duration{
	"today": 24 * time.Hour,
	"week":  168 * time.Hour,
	"month": 720 * time.Hour,
	"all":   8760 * time.Hour,
}

// ErrInvalidTimeRange is returned when timeRange isn't one of the
// preset values, before any fetch is attempted.
var ErrInvalidTimeRange = errors.New("timeRange must be one of: today, week, month, all")

const (
	defaultLimit = 50
	maxLimit     = 100
)

// ListOptions are the list query's caller-supplied parameters.
type ListOptions struct {
	Page      int
	Limit     int
	TimeRange string
	SortBy    string // date (default), name, venue
	Filters   map[string]string
}

// ListResult is the list query's response shape.
type ListResult struct {
	Data       []eventmodel.Event
	TotalCount int
	HasMore    bool
	CacheHit   string
}

// Service answers list/detail queries against a primary QueryStore
// (the document store when enabled) with fallback to the file
// adapter on failure, per spec.md §4.13.
type Service struct {
	primary  storage.QueryStore
	fallback storage.QueryStore
	cache    *cache.Cache
	log      zerolog.Logger
}

// New builds a query Service. fallback may equal primary (or be nil)
// when only one store is configured.
func New(primary, fallback storage.QueryStore, c *cache.Cache, log zerolog.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, cache: c, log: log.With().Str("component", "query").Logger()}
}

// List validates options, clamps pagination, and resolves the result
// through the tiered cache.
func (s *Service) List(ctx context.Context, city string, opts ListOptions) (ListResult, error) {
	if opts.TimeRange == "" {
		opts.TimeRange = "all"
	}
	if _, ok := timeRangePresets[opts.TimeRange]; !ok {
		return ListResult{}, fmt.Errorf("%w: got %q", ErrInvalidTimeRange, opts.TimeRange)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "date"
	}

	key := cache.Key{City: city, Page: page, Limit: limit, TimeRange: opts.TimeRange, SortBy: sortBy, Filters: opts.Filters}

	fetch := func(ctx context.Context) (any, error) {
		return s.fetchList(ctx, city, page, limit, opts.TimeRange, sortBy, opts.Filters)
	}

	v, hit, err := s.cache.Get(ctx, key, fetch)
	if err != nil {
		return ListResult{}, err
	}
	result := v.(ListResult)
	result.CacheHit = hit

	s.cache.Prefetch(ctx, key, func(next cache.Key) cache.Fetch {
		return func(ctx context.Context) (any, error) {
			return s.fetchList(ctx, next.City, next.Page, next.Limit, next.TimeRange, next.SortBy, opts.Filters)
		}
	})

	return result, nil
}

func (s *Service) fetchList(ctx context.Context, city string, page, limit int, timeRange, sortBy string, filters map[string]string) (ListResult, error) {
	p := storage.Predicate{
		City:       city,
		Page:       page,
		Limit:      limit,
		SortBy:     sortBy,
		FutureOnly: true,
	}
	if timeRange != "all" {
		p.DateFrom = time.Now()
		p.DateTo = time.Now().Add(timeRangePresets[timeRange])
	}
	applyFilters(&p, filters)

	events, total, err := s.primary.Query(ctx, p)
	if err != nil && s.fallback != nil {
		s.log.Warn().Err(err).Msg("primary store query failed, falling back")
		events, total, err = s.fallback.Query(ctx, p)
	}
	if err != nil {
		return ListResult{}, fmt.Errorf("query: %w", err)
	}

	return ListResult{
		Data:       events,
		TotalCount: total,
		HasMore:    page*limit < total,
	}, nil
}

// applyFilters maps the §4.11 filters set onto a storage.Predicate.
// priceRange is "min,max", either side blank for an open bound (e.g.
// ",50" means up to 50, "10," means 10 and up).
func applyFilters(p *storage.Predicate, filters map[string]string) {
	if filters == nil {
		return
	}
	if v, ok := filters["venues"]; ok {
		p.VenueName = v
	}
	if v, ok := filters["genres"]; ok {
		p.TagContains = v
	}
	if v, ok := filters["priceRange"]; ok {
		p.PriceMin, p.PriceMax = parsePriceRange(v)
	}
}

func parsePriceRange(s string) (min, max *float64) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
		min = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
		max = &v
	}
	return min, max
}

// Detail looks up a single event by id, falling back to the file
// store on a primary-store failure. Returns (nil, nil) when absent.
func (s *Service) Detail(ctx context.Context, id string) (*eventmodel.Event, error) {
	e, ok, err := s.primary.GetByID(ctx, id)
	if err != nil && s.fallback != nil {
		s.log.Warn().Err(err).Msg("primary store get failed, falling back")
		e, ok, err = s.fallback.GetByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get by id %q: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &e, nil
}
