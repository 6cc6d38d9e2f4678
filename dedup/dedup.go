// Package dedup implements the two-pass deduplicator from §4.7: an
// exact-id pass followed by a fuzzy pass that buckets survivors by
// fuzzy sub-key and scores candidates with the weighted similarity
// function in score.go.
package dedup

import (
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/trust"
)

// SourceCounters tracks per-source before/after counts.
type SourceCounters struct {
	Original      int
	AfterDedup    int
	DuplicatesRemoved int
}

// Result is the output of a full dedup run.
type Result struct {
	Deduped           []eventmodel.Event
	DuplicatesRemoved int
	MergedGroups      int
	PerSource         map[string]*SourceCounters
}

// Run executes the exact-id pass followed by the fuzzy pass over all
// input events, merging each matched group via trust.Merge.
func Run(events []eventmodel.Event, scores trust.Scores, opts Options) Result {
	perSource := make(map[string]*SourceCounters)
	for _, e := range events {
		c, ok := perSource[e.Source]
		if !ok {
			c = &SourceCounters{}
			perSource[e.Source] = c
		}
		c.Original++
	}

	afterExact, exactGroups := exactIDPass(events, scores)
	afterFuzzy, fuzzyGroups := fuzzyPass(afterExact, scores, opts)

	totalInput := len(events)
	duplicatesRemoved := totalInput - len(afterFuzzy)

	countAfter(afterFuzzy, perSource)

	return Result{
		Deduped:           afterFuzzy,
		DuplicatesRemoved: duplicatesRemoved,
		MergedGroups:      exactGroups + fuzzyGroups,
		PerSource:         perSource,
	}
}

func countAfter(deduped []eventmodel.Event, perSource map[string]*SourceCounters) {
	// A merged record keeps the most-trusted source's name; attribute
	// its survival to that source and leave others' AfterDedup at the
	// count of records that were never grouped away.
	survived := make(map[string]int)
	for _, e := range deduped {
		survived[e.Source]++
	}
	for source, c := range perSource {
		c.AfterDedup = survived[source]
		c.DuplicatesRemoved = c.Original - c.AfterDedup
		if c.DuplicatesRemoved < 0 {
			c.DuplicatesRemoved = 0
		}
	}
}

// exactIDPass groups by id; any group with more than one member
// collapses via trust.Merge.
func exactIDPass(events []eventmodel.Event, scores trust.Scores) ([]eventmodel.Event, int) {
	byID := make(map[string][]eventmodel.Event)
	order := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := byID[e.ID]; !ok {
			order = append(order, e.ID)
		}
		byID[e.ID] = append(byID[e.ID], e)
	}

	out := make([]eventmodel.Event, 0, len(events))
	groups := 0
	for _, id := range order {
		group := byID[id]
		if len(group) > 1 {
			out = append(out, trust.Merge(group, scores))
			groups++
		} else {
			out = append(out, group[0])
		}
	}
	return out, groups
}

// fuzzyPass buckets survivors by fuzzy sub-key and scores unprocessed
// pairs within shared buckets, merging matched groups via trust.Merge.
func fuzzyPass(events []eventmodel.Event, scores trust.Scores, opts Options) ([]eventmodel.Event, int) {
	n := len(events)
	keys := make([]eventmodel.FuzzyKey, n)
	for i, e := range events {
		keys[i] = eventmodel.BuildFuzzyKey(e)
	}

	buckets := make(map[string][]int)
	addToBucket := func(bucketKey string, idx int) {
		buckets[bucketKey] = append(buckets[bucketKey], idx)
	}
	for i, k := range keys {
		addToBucket("venue-day:"+k.VenueDayKey(), i)
		addToBucket("city-day:"+k.CityDayKey(), i)
		addToBucket("composite:"+k.Digest(), i)
	}

	handled := make([]bool, n)
	var out []eventmodel.Event
	groups := 0

	for i := range events {
		if handled[i] {
			continue
		}

		candidateSet := make(map[int]struct{})
		for _, bucketKey := range []string{"venue-day:" + keys[i].VenueDayKey(), "city-day:" + keys[i].CityDayKey(), "composite:" + keys[i].Digest()} {
			for _, j := range buckets[bucketKey] {
				if j != i && !handled[j] {
					candidateSet[j] = struct{}{}
				}
			}
		}

		group := []eventmodel.Event{events[i]}
		groupIdx := []int{i}
		for j := range candidateSet {
			sc := ComparePair(events[i], events[j], opts)
			if sc.IsMatch(opts.MinConfidence) {
				group = append(group, events[j])
				groupIdx = append(groupIdx, j)
			}
		}

		for _, idx := range groupIdx {
			handled[idx] = true
		}

		if len(group) > 1 {
			out = append(out, trust.Merge(group, scores))
			groups++
		} else {
			out = append(out, group[0])
		}
	}

	return out, groups
}
