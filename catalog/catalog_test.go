package catalog_test

import (
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/catalog"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/trust"
	"github.com/stretchr/testify/require"
)

func TestGenerateSortsByDateStartAscending(t *testing.T) {
	now := time.Now()
	later := eventmodel.Event{ID: "b", Source: "x", DateStart: now.Add(48 * time.Hour), Hash: "h2"}
	sooner := eventmodel.Event{ID: "a", Source: "x", DateStart: now.Add(1 * time.Hour), Hash: "h1"}

	snaps := []catalog.Snapshot{{Source: "x", Events: []eventmodel.Event{later, sooner}, LastRun: now}}
	opts := catalog.DefaultOptions(trust.NewScores(nil, 50))

	cat, warnings := catalog.Generate(snaps, opts, now, "0.1.0")
	require.Empty(t, warnings)
	require.Len(t, cat.Gigs, 2)
	require.Equal(t, "a", cat.Gigs[0].ID)
	require.Equal(t, "b", cat.Gigs[1].ID)
}

func TestGenerateSkipsStaleSnapshots(t *testing.T) {
	now := time.Now()
	stale := catalog.Snapshot{Source: "old", Events: []eventmodel.Event{{ID: "z", Hash: "h"}}, LastRun: now.Add(-48 * time.Hour)}
	opts := catalog.DefaultOptions(trust.NewScores(nil, 50))

	cat, warnings := catalog.Generate([]catalog.Snapshot{stale}, opts, now, "0.1.0")
	require.Len(t, warnings, 1)
	require.Empty(t, cat.Gigs)
}

func TestDiffClassifiesAddedUpdatedRemovedUnchanged(t *testing.T) {
	old := []eventmodel.Event{
		{ID: "a", Hash: "h1"},
		{ID: "b", Hash: "h2"},
	}
	next := []eventmodel.Event{
		{ID: "a", Hash: "h1"}, // unchanged
		{ID: "c", Hash: "h3"}, // added
		// "b" removed
	}
	d := catalog.ComputeDiff(old, next)
	require.Len(t, d.Added, 1)
	require.Len(t, d.Removed, 1)
	require.Len(t, d.Unchanged, 1)
	require.Empty(t, d.Updated)
}
