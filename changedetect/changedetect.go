// Package changedetect classifies a source's current ingestion output
// against its previous snapshot into new/updated/unchanged, per §4.5.
package changedetect

import (
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
)

// Result is the output triple of one classification pass.
type Result struct {
	New       []eventmodel.Event
	Updated   []eventmodel.Event
	Unchanged []eventmodel.Event
}

// Classify compares current against previous by id and hash. An id
// absent from previous is new; present with a different hash is
// updated; present with the same hash is unchanged. Absence in
// current of an id present in previous is not surfaced here — per
// spec.md §4.5/§9, deletions only appear in the catalog diff.
func Classify(current, previous []eventmodel.Event) Result {
	prevByID := make(map[string]eventmodel.Event, len(previous))
	for _, p := range previous {
		prevByID[p.ID] = p
	}

	var res Result
	for _, c := range current {
		prev, existed := prevByID[c.ID]
		switch {
		case !existed:
			res.New = append(res.New, c)
		case prev.Hash != c.Hash:
			res.Updated = append(res.Updated, c)
		default:
			res.Unchanged = append(res.Unchanged, c)
		}
	}
	return res
}

// Merge re-assembles the next snapshot from a classification result,
// stamping FirstSeenAt on new records, bumping UpdatedAt/LastSeenAt on
// updated ones, and preserving FirstSeenAt from the previous record
// when available.
func Merge(res Result, previous []eventmodel.Event, now time.Time) []eventmodel.Event {
	prevByID := make(map[string]eventmodel.Event, len(previous))
	for _, p := range previous {
		prevByID[p.ID] = p
	}

	out := make([]eventmodel.Event, 0, len(res.New)+len(res.Updated)+len(res.Unchanged))

	for _, e := range res.New {
		e.FirstSeenAt = timePtr(now)
		e.LastSeenAt = timePtr(now)
		e.IsNew = true
		out = append(out, e)
	}
	for _, e := range res.Updated {
		if prev, ok := prevByID[e.ID]; ok && prev.FirstSeenAt != nil {
			e.FirstSeenAt = prev.FirstSeenAt
		} else {
			e.FirstSeenAt = timePtr(now)
		}
		e.UpdatedAt = now
		e.LastSeenAt = timePtr(now)
		e.IsUpdated = true
		out = append(out, e)
	}
	for _, e := range res.Unchanged {
		if prev, ok := prevByID[e.ID]; ok {
			if prev.FirstSeenAt != nil {
				e.FirstSeenAt = prev.FirstSeenAt
			}
			e.LastSeenAt = timePtr(now)
		}
		e.IsNew = false
		e.IsUpdated = false
		out = append(out, e)
	}
	return out
}

func timePtr(t time.Time) *time.Time { return &t }
