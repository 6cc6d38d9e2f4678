package eventmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ID derives the stable identifier for e: the lower-cased,
// whitespace-collapsed, non-alphanumeric-stripped concatenation of
// venue name, title, dateStart (ISO), and city. Byte-identical inputs
// always yield a byte-identical id; an invalid (zero) dateStart still
// produces a non-empty id with an empty date component.
func ID(e Event) string {
	dateComponent := ""
	if !e.DateStart.IsZero() {
		dateComponent = e.DateStart.UTC().Format(timeLayout)
	}
	parts := []string{
		AlnumToken(e.Venue.Name),
		AlnumToken(e.Title),
		AlnumToken(dateComponent),
		AlnumToken(e.Venue.City),
	}
	return strings.Join(parts, "-")
}

// CompositeKey derives a regenerated id for a merged record that does
// not preserve an original source id: SHA-256 over
// norm(venue)|norm(title)|dateStart|norm(city).
func CompositeKey(e Event) string {
	dateComponent := ""
	if !e.DateStart.IsZero() {
		dateComponent = e.DateStart.UTC().Format(timeLayout)
	}
	payload := strings.Join([]string{
		NormalizeVenue(e.Venue.Name),
		NormalizeToken(e.Title),
		dateComponent,
		NormalizeToken(e.Venue.City),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
