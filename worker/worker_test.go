package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/errs"
	"github.com/gigcatalog/ingestor/observability"
	"github.com/gigcatalog/ingestor/plugin/fixture"
	"github.com/gigcatalog/ingestor/ratelimit"
	"github.com/gigcatalog/ingestor/storage/file"
	"github.com/gigcatalog/ingestor/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newDeps(t *testing.T) (worker.Deps, *file.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := file.New(dir+"/snapshots", dir+"/catalog.json")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return worker.Deps{
		Snapshots:    store,
		Sanitizer:    errs.Sanitizer{AutoFix: true},
		Metrics:      observability.NewMetrics(),
		Health:       observability.NewHealthRegistry(nil),
		RawDataDir:   dir + "/raw",
		FetchTimeout: time.Second,
		Log:          zerolog.Nop(),
	}, store
}

func TestRunPersistsNewSnapshotOnFirstRun(t *testing.T) {
	deps, store := newDeps(t)
	w := worker.New(deps)
	p := fixture.New("venueA", 600)
	p.Enqueue(fixture.RawGig{SourceID: "1", Title: "Show One", Venue: "The Hall", City: "London", When: time.Now().Add(24 * time.Hour)})
	limiter := ratelimit.New(600, 0)

	result, err := w.Run(context.Background(), "venueA", p, limiter, "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.New)
	require.Equal(t, 0, result.Updated)
	require.False(t, result.Aborted)

	snap, ok, err := store.LoadSnapshot(context.Background(), "venueA")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Events, 1)
	require.NotEmpty(t, snap.Events[0].ID)
	require.NotEmpty(t, snap.Events[0].Hash)
}

func TestRunClassifiesUnchangedOnSecondIdenticalRun(t *testing.T) {
	deps, _ := newDeps(t)
	w := worker.New(deps)
	p := fixture.New("venueB", 600)
	gig := fixture.RawGig{SourceID: "1", Title: "Show One", Venue: "The Hall", City: "London", When: time.Now().Add(24 * time.Hour)}
	limiter := ratelimit.New(600, 0)

	p.Enqueue(gig)
	_, err := w.Run(context.Background(), "venueB", p, limiter, "run-1")
	require.NoError(t, err)

	p.Enqueue(gig)
	result, err := w.Run(context.Background(), "venueB", p, limiter, "run-2")
	require.NoError(t, err)
	require.Equal(t, 0, result.New)
	require.Equal(t, 1, result.Unchanged)
}

func TestRunAbortsAndLeavesSnapshotUntouchedOnFetchFailure(t *testing.T) {
	deps, store := newDeps(t)
	w := worker.New(deps)
	p := fixture.New("venueC", 600)
	limiter := ratelimit.New(600, 0)

	p.Enqueue(fixture.RawGig{SourceID: "1", Title: "Show One", Venue: "The Hall", City: "London", When: time.Now().Add(24 * time.Hour)})
	_, err := w.Run(context.Background(), "venueC", p, limiter, "run-1")
	require.NoError(t, err)

	p.FailNext(context.DeadlineExceeded)
	result, err := w.Run(context.Background(), "venueC", p, limiter, "run-2")
	require.Error(t, err)
	require.True(t, result.Aborted)

	snap, ok, loadErr := store.LoadSnapshot(context.Background(), "venueC")
	require.NoError(t, loadErr)
	require.True(t, ok)
	require.Len(t, snap.Events, 1, "prior snapshot must survive an aborted run")
}

func TestRunDropsInvalidRecordsAndClassifiesSeverity(t *testing.T) {
	deps, _ := newDeps(t)
	deps.Sanitizer = errs.Sanitizer{AutoFix: false}
	w := worker.New(deps)
	p := fixture.New("venueD", 600)
	limiter := ratelimit.New(600, 0)

	p.Enqueue(
		fixture.RawGig{SourceID: "1", Title: "Show One", Venue: "The Hall", City: "London", When: time.Now().Add(24 * time.Hour)},
		fixture.RawGig{SourceID: "2", Title: "", Venue: "The Hall", City: "London", When: time.Now().Add(24 * time.Hour)},
	)

	result, err := w.Run(context.Background(), "venueD", p, limiter, "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Invalid)
	require.Equal(t, errs.SeverityMedium, result.Severity)
}
