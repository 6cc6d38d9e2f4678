package dedup

import (
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
)

// Fixed fuzzy-match weights from §4.7/§9 — part of the contract for
// reproducibility, never tuned without updating the scenario tests.
const (
	weightVenue    = 0.3
	weightTitle    = 0.3
	weightLocation = 0.2
	weightDate     = 0.2

	venueThreshold = 0.80
	titleThreshold = 0.75
)

// Score is the breakdown of one pairwise comparison.
type Score struct {
	VenueScore    float64
	TitleScore    float64
	LocationScore float64
	DateScore     float64
	Overall       float64
	ExactSourceID bool
}

// Options configures the fuzzy pass per §4.7.
type Options struct {
	MinConfidence      float64
	DateToleranceHours int
	RequireSameDay     bool
}

// DefaultOptions returns the spec's defaults.
func DefaultOptions() Options {
	return Options{MinConfidence: 0.7, DateToleranceHours: 2, RequireSameDay: false}
}

// ComparePair scores a and b per §4.7's weighted formula. A shared,
// non-empty (source, sourceId) pair short-circuits to confidence 1.0.
func ComparePair(a, b eventmodel.Event, opts Options) Score {
	if a.Source != "" && a.Source == b.Source && a.SourceID != "" && a.SourceID == b.SourceID {
		return Score{ExactSourceID: true, Overall: 1.0}
	}

	venueScore := JaroWinkler(eventmodel.NormalizeVenue(a.Venue.Name), eventmodel.NormalizeVenue(b.Venue.Name))
	if venueScore < venueThreshold {
		venueScore = 0
	}
	titleScore := JaroWinkler(eventmodel.NormalizeToken(a.Title), eventmodel.NormalizeToken(b.Title))
	if titleScore < titleThreshold {
		titleScore = 0
	}

	locationScore := locationSimilarity(a, b)
	dateScore := dateSimilarity(a.DateStart, b.DateStart, opts.DateToleranceHours)

	overall := weightVenue*venueScore + weightTitle*titleScore + weightLocation*locationScore + weightDate*dateScore

	sc := Score{VenueScore: venueScore, TitleScore: titleScore, LocationScore: locationScore, DateScore: dateScore, Overall: overall}

	if opts.RequireSameDay && !sameDay(a.DateStart, b.DateStart) {
		sc.Overall = 0
	}
	return sc
}

// IsMatch reports whether a pair's score clears minConfidence, honoring
// RequireSameDay's hard veto already folded into Score.Overall.
func (s Score) IsMatch(minConfidence float64) bool {
	return s.Overall >= minConfidence
}

func locationSimilarity(a, b eventmodel.Event) float64 {
	cityA, cityB := eventmodel.NormalizeToken(a.Venue.City), eventmodel.NormalizeToken(b.Venue.City)
	if cityA != "" && cityB != "" {
		return JaroWinkler(cityA, cityB)
	}
	addrA := eventmodel.NormalizeToken(a.Venue.Address + " " + a.Venue.Country)
	addrB := eventmodel.NormalizeToken(b.Venue.Address + " " + b.Venue.Country)
	return JaroWinkler(addrA, addrB)
}

func dateSimilarity(a, b time.Time, toleranceHours int) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	if sameDay(a, b) {
		return 1.0
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	if diff <= time.Duration(toleranceHours)*time.Hour {
		return 0.8
	}
	return 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
