package file_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/catalog"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/storage"
	"github.com/gigcatalog/ingestor/storage/file"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *file.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := file.New(filepath.Join(dir, "normalized"), filepath.Join(dir, "catalog.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadSnapshotRoundTrips(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := catalog.Snapshot{
		Source:  "site-a",
		Events:  []eventmodel.Event{{ID: "a", Source: "site-a", Title: "Rock Show"}},
		LastRun: time.Now(),
	}
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	loaded, ok, err := s.LoadSnapshot(ctx, "site-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Events, 1)
	require.Equal(t, "Rock Show", loaded.Events[0].Title)
}

func TestLoadSnapshotMissingIsNotError(t *testing.T) {
	s := newStore(t)
	_, ok, err := s.LoadSnapshot(context.Background(), "never-ran")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveAndLoadCatalogRoundTrips(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cat := catalog.Catalog{Gigs: []eventmodel.Event{{ID: "a", Title: "Jazz"}}}
	require.NoError(t, s.SaveCatalog(ctx, cat))

	loaded, ok, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Gigs, 1)
}

func TestQueryFiltersByCityCaseInsensitively(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cat := catalog.Catalog{Gigs: []eventmodel.Event{
		{ID: "a", Title: "Show A", Venue: eventmodel.Venue{City: "London"}, DateStart: time.Now().Add(time.Hour)},
		{ID: "b", Title: "Show B", Venue: eventmodel.Venue{City: "Paris"}, DateStart: time.Now().Add(time.Hour)},
	}}
	require.NoError(t, s.SaveCatalog(ctx, cat))

	results, total, err := s.Query(ctx, storage.Predicate{City: "london", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
}

func TestGetByIDReturnsFalseWhenAbsent(t *testing.T) {
	s := newStore(t)
	_, ok, err := s.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}
