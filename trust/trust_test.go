package trust_test

import (
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/trust"
	"github.com/stretchr/testify/require"
)

func TestExactIDDedupAcrossSources(t *testing.T) {
	scores := trust.NewScores(map[string]int{
		"web-scraper": 40,
		"ticketmaster": 90,
	}, 50)

	now := time.Now()
	scraped := eventmodel.Event{
		ID: "same", Source: "web-scraper", Title: "Scraped",
		Artists: []string{"A", "B"}, UpdatedAt: now.Add(-time.Hour),
	}
	official := eventmodel.Event{
		ID: "same", Source: "ticketmaster", Title: "Official",
		Artists: []string{"B", "C"}, UpdatedAt: now,
	}

	merged := trust.Merge([]eventmodel.Event{scraped, official}, scores)
	require.Equal(t, "Official", merged.Title)
	require.Equal(t, "ticketmaster", merged.Source)
	require.ElementsMatch(t, []string{"A", "B", "C"}, merged.Artists)
}

func TestMostTrustedTieBreaksByUpdatedAtThenSource(t *testing.T) {
	scores := trust.NewScores(nil, 50)
	now := time.Now()
	a := eventmodel.Event{Source: "zeta", UpdatedAt: now}
	b := eventmodel.Event{Source: "alpha", UpdatedAt: now}
	best := trust.MostTrusted([]eventmodel.Event{a, b}, scores)
	require.Equal(t, "alpha", best.Source)
}

func TestMergeFirstLastSeenUpdatedAt(t *testing.T) {
	scores := trust.NewScores(nil, 50)
	t0 := time.Now().Add(-48 * time.Hour)
	t1 := time.Now().Add(-1 * time.Hour)
	t2 := time.Now()

	e1 := eventmodel.Event{Source: "a", FirstSeenAt: &t0, LastSeenAt: &t1, UpdatedAt: t1}
	e2 := eventmodel.Event{Source: "b", FirstSeenAt: &t1, LastSeenAt: &t2, UpdatedAt: t2}

	merged := trust.Merge([]eventmodel.Event{e1, e2}, scores)
	require.Equal(t, t0, *merged.FirstSeenAt)
	require.Equal(t, t2, *merged.LastSeenAt)
	require.Equal(t, t2, merged.UpdatedAt)
}
