package eventmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashRelevantFields returns a canonical, sorted-key representation of
// the content-bearing fields of e. Undefined fields are omitted rather
// than encoded as null so optional absence never changes the hash.
// id, updatedAt, and hash itself are intentionally excluded.
func hashRelevantFields(e Event) map[string]any {
	m := map[string]any{
		"title":  e.Title,
		"status": string(e.Status),
	}
	if len(e.Artists) > 0 {
		m["artists"] = e.Artists
	}
	if len(e.Tags) > 0 {
		m["tags"] = e.Tags
	}
	if !e.DateStart.IsZero() {
		m["dateStart"] = e.DateStart.UTC().Format(timeLayout)
	}
	if e.DateEnd != nil {
		m["dateEnd"] = e.DateEnd.UTC().Format(timeLayout)
	}
	venue := map[string]any{}
	if e.Venue.Name != "" {
		venue["name"] = e.Venue.Name
	}
	if e.Venue.Address != "" {
		venue["address"] = e.Venue.Address
	}
	if e.Venue.City != "" {
		venue["city"] = e.Venue.City
	}
	if e.Venue.Country != "" {
		venue["country"] = e.Venue.Country
	}
	if e.Venue.Lat != nil {
		venue["lat"] = *e.Venue.Lat
	}
	if e.Venue.Lng != nil {
		venue["lng"] = *e.Venue.Lng
	}
	if len(venue) > 0 {
		m["venue"] = venue
	}
	price := map[string]any{}
	if e.Price.Min != nil {
		price["min"] = *e.Price.Min
	}
	if e.Price.Max != nil {
		price["max"] = *e.Price.Max
	}
	if e.Price.Currency != "" {
		price["currency"] = e.Price.Currency
	}
	if len(price) > 0 {
		m["price"] = price
	}
	if e.AgeRestriction != "" {
		m["ageRestriction"] = e.AgeRestriction
	}
	if e.TicketsURL != "" {
		m["ticketsUrl"] = e.TicketsURL
	}
	if e.EventURL != "" {
		m["eventUrl"] = e.EventURL
	}
	if len(e.Images) > 0 {
		m["images"] = e.Images
	}
	return m
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// canonicalJSON encodes v with map keys sorted and arrays preserved in
// order. encoding/json already sorts map[string]any keys; canonicalJSON
// exists to make that contract explicit and to centralize the failure
// path for non-serializable input.
func canonicalJSON(v any) ([]byte, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return b, true
}

// ContentHash returns the SHA-256 content fingerprint of e over its
// hash-relevant fields only. A non-serializable record yields the
// sentinel empty string, which callers must treat as "non-hashable"
// (suppress the record, not fatal to the run).
func ContentHash(e Event) string {
	fields := hashRelevantFields(e)
	b, ok := canonicalJSON(fields)
	if !ok {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
