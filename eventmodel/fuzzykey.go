package eventmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// FuzzyKey is the tuple of normalized tokens used to bucket candidates
// for cross-source matching before scoring.
type FuzzyKey struct {
	Venue      string
	Title      string
	City       string
	DateHour   string // date rounded to the hour, empty when invalid
	MainArtist string
}

// BuildFuzzyKey derives the fuzzy key for e. An invalid (zero)
// dateStart yields an empty DateHour component but the rest of the key
// is still populated.
func BuildFuzzyKey(e Event) FuzzyKey {
	dateHour := ""
	if !e.DateStart.IsZero() {
		dateHour = e.DateStart.UTC().Truncate(time.Hour).Format(timeLayout)
	}
	return FuzzyKey{
		Venue:      NormalizeVenue(e.Venue.Name),
		Title:      NormalizeToken(e.Title),
		City:       NormalizeToken(e.Venue.City),
		DateHour:   dateHour,
		MainArtist: MainArtist(e.Artists),
	}
}

// Digest returns the SHA-256 comparison hash of the fuzzy key.
func (k FuzzyKey) Digest() string {
	payload := strings.Join([]string{k.Venue, k.Title, k.City, k.DateHour, k.MainArtist}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VenueDayKey and CityDayKey are the coarser bucket keys the deduplicator
// uses to group candidates before full fuzzy scoring.
func (k FuzzyKey) VenueDayKey() string { return k.Venue + "|" + dayOnly(k.DateHour) }
func (k FuzzyKey) CityDayKey() string  { return k.City + "|" + dayOnly(k.DateHour) }

func dayOnly(dateHour string) string {
	if len(dateHour) < 10 {
		return dateHour
	}
	return dateHour[:10]
}
