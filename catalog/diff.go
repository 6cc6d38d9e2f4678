package catalog

import "github.com/gigcatalog/ingestor/eventmodel"

// Diff is the result of comparing two catalog generations by id and
// hash, independent of which sources still report a record — a record
// absent from every source disappears here and is reported Removed,
// per §4.8/§9 (change detection at the per-source layer never surfaces
// removals; the catalog diff is the only layer that does).
type Diff struct {
	Added     []eventmodel.Event
	Updated   []eventmodel.Event
	Removed   []eventmodel.Event
	Unchanged []eventmodel.Event
}

// ComputeDiff compares newCatalog against oldCatalog.
func ComputeDiff(oldCatalog, newCatalog []eventmodel.Event) Diff {
	oldByID := make(map[string]eventmodel.Event, len(oldCatalog))
	for _, e := range oldCatalog {
		oldByID[e.ID] = e
	}
	seen := make(map[string]struct{}, len(newCatalog))

	var d Diff
	for _, e := range newCatalog {
		seen[e.ID] = struct{}{}
		old, existed := oldByID[e.ID]
		switch {
		case !existed:
			d.Added = append(d.Added, e)
		case old.Hash != e.Hash:
			d.Updated = append(d.Updated, e)
		default:
			d.Unchanged = append(d.Unchanged, e)
		}
	}
	for _, e := range oldCatalog {
		if _, ok := seen[e.ID]; !ok {
			d.Removed = append(d.Removed, e)
		}
	}
	return d
}
