package dedup

import (
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/xrash/smetrics"
)

// jaroWinklerBoostThreshold and jaroWinklerPrefixCap are the fixed parameters
// from §4.7: the Winkler boost applies only when the underlying Jaro
// similarity is at least 0.7, and only the first 4 matching characters
// count toward the prefix bonus.
const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixCap      = 4
)

// JaroWinkler returns the Jaro similarity with a Winkler prefix boost
// (scale 0.1, capped at the first 4 matching characters, applied only
// when the Jaro similarity is >= 0.7). Symmetric: sim(a,b) == sim(b,a).
// Identity: sim(a,a) == 1.
func JaroWinkler(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return smetrics.JaroWinkler(a, b, jaroWinklerBoostThreshold, jaroWinklerPrefixCap)
}

// Normalize is re-exported from eventmodel so dedup's public API
// carries the text normalization it depends on, per SPEC_FULL §3.
func Normalize(s string) string { return eventmodel.NormalizeToken(s) }
