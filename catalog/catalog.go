// Package catalog implements the catalog generator (C8): unions
// per-source snapshots, runs the deduplicator, and emits a versioned
// catalog document plus a diff against the previous catalog.
package catalog

import (
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gigcatalog/ingestor/dedup"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/trust"
)

// Snapshot is one source's latest ingestion output, as read from
// storage before generation.
type Snapshot struct {
	Source    string
	Events    []eventmodel.Event
	LastRun   time.Time
}

// Options configures one generation pass.
type Options struct {
	Dedup          dedup.Options
	TrustScores    trust.Scores
	MaxSnapshotAge time.Duration
}

// DefaultOptions returns the spec's defaults (§4.8).
func DefaultOptions(scores trust.Scores) Options {
	return Options{
		Dedup:          dedup.DefaultOptions(),
		TrustScores:    scores,
		MaxSnapshotAge: 24 * time.Hour,
	}
}

// SourceStat is the per-source contribution to one generation.
type SourceStat struct {
	Original          int
	AfterDedup        int
	DuplicatesRemoved int
	SkippedStale      bool
}

// Metadata is the catalog's generation metadata.
type Metadata struct {
	Version           string
	GeneratedAt       time.Time
	DuplicatesRemoved int
	MergedGroups      int
	ProcessingTimeMs  int64
	SourceCount       int
	TotalProcessed    int
}

// Catalog is the deduplicated union over all sources, sorted by
// DateStart ascending, with generation metadata.
type Catalog struct {
	Gigs        []eventmodel.Event
	SourceStats map[string]SourceStat
	Totals      SourceStat
	Metadata    Metadata
}

// Warning describes a snapshot skipped for being older than MaxSnapshotAge.
type Warning struct {
	Source string
	Age    time.Duration
}

// Generate unions all eligible snapshots (per MaxSnapshotAge), runs the
// deduplicator, and sorts the result by DateStart ascending.
func Generate(snapshots []Snapshot, opts Options, now time.Time, previousVersion string) (Catalog, []Warning) {
	start := time.Now()

	var warnings []Warning
	var all []eventmodel.Event
	eligibleSources := 0
	for _, s := range snapshots {
		age := now.Sub(s.LastRun)
		if opts.MaxSnapshotAge > 0 && age > opts.MaxSnapshotAge {
			warnings = append(warnings, Warning{Source: s.Source, Age: age})
			continue
		}
		eligibleSources++
		all = append(all, s.Events...)
	}

	result := dedup.Run(all, opts.TrustScores, opts.Dedup)

	sorted := append([]eventmodel.Event(nil), result.Deduped...)
	sortByDateStartAscending(sorted)

	stats := make(map[string]SourceStat, len(result.PerSource))
	var totals SourceStat
	for source, c := range result.PerSource {
		st := SourceStat{Original: c.Original, AfterDedup: c.AfterDedup, DuplicatesRemoved: c.DuplicatesRemoved}
		stats[source] = st
		totals.Original += c.Original
		totals.AfterDedup += c.AfterDedup
		totals.DuplicatesRemoved += c.DuplicatesRemoved
	}
	for _, w := range warnings {
		st := stats[w.Source]
		st.SkippedStale = true
		stats[w.Source] = st
	}

	cat := Catalog{
		Gigs:        sorted,
		SourceStats: stats,
		Totals:      totals,
		Metadata: Metadata{
			Version:           nextVersion(previousVersion, result.DuplicatesRemoved > 0 || len(result.PerSource) > 0),
			GeneratedAt:       now,
			DuplicatesRemoved: result.DuplicatesRemoved,
			MergedGroups:      result.MergedGroups,
			ProcessingTimeMs:  time.Since(start).Milliseconds(),
			SourceCount:       eligibleSources,
			TotalProcessed:    len(all),
		},
	}
	return cat, warnings
}

func sortByDateStartAscending(events []eventmodel.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].DateStart.Before(events[j].DateStart) })
}

// nextVersion bumps the patch component of previousVersion when changed
// is set (Generate sets it whenever any source contributed records),
// otherwise leaves it untouched. Falls back to "0.1.0" when
// previousVersion doesn't parse.
func nextVersion(previousVersion string, changed bool) string {
	v, err := semver.NewVersion(previousVersion)
	if err != nil {
		return "0.1.0"
	}
	if !changed {
		return v.String()
	}
	next := v.IncPatch()
	return next.String()
}
