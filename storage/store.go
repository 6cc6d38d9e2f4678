// Package storage defines the persistence contract (C13) shared by
// the file-snapshot adapter and the document-store adapter, plus the
// document-store query predicate set from spec.md §4.13.
package storage

import (
	"context"
	"time"

	"github.com/gigcatalog/ingestor/catalog"
	"github.com/gigcatalog/ingestor/eventmodel"
)

// SnapshotStore persists and loads one source's latest normalized
// snapshot. Only the file adapter implements this: per-source
// snapshots are a pipeline artifact, not a query surface.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, source string) (catalog.Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, snapshot catalog.Snapshot) error
	ListSources(ctx context.Context) ([]string, error)
}

// CatalogStore persists and loads the generated catalog document.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (catalog.Catalog, bool, error)
	SaveCatalog(ctx context.Context, cat catalog.Catalog) error
}

// Predicate is the document-store query predicate set from §4.13.
type Predicate struct {
	City        string // case-insensitive exact match
	TagContains string
	VenueName   string
	Source      string
	Text        string // free-text search across title/artists/venue/tags
	DateFrom    time.Time
	DateTo      time.Time
	FutureOnly  bool // default: only events at/after query time
	PriceMin    *float64
	PriceMax    *float64
	Page        int
	Limit       int
	SortBy      string
}

// QueryStore is the read surface the query package (C11) drives.
// Implemented by mongostore (predicate pushdown) and, as a fallback,
// by the file adapter (in-memory scan over the cached catalog).
type QueryStore interface {
	Query(ctx context.Context, p Predicate) ([]eventmodel.Event, int, error)
	GetByID(ctx context.Context, id string) (eventmodel.Event, bool, error)
	Healthy(ctx context.Context) bool
}
