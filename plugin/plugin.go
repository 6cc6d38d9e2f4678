// Package plugin defines the scraper plugin contract (§6) that every
// per-source connector implements, and the error kinds fetch_raw may
// fail with. Concrete scrapers (JSON-selector driven, headless-browser
// backed) live outside this module per spec.md §1; this package only
// owns the contract and a deterministic fixture used by tests.
package plugin

import (
	"context"
	"errors"

	"github.com/gigcatalog/ingestor/eventmodel"
)

// ErrNetworkFailure, ErrRateLimited, and ErrParseFailure are the three
// ways fetch_raw may fail; the worker treats all three as run-aborting.
var (
	ErrNetworkFailure = errors.New("network failure")
	ErrRateLimited    = errors.New("rate limited by upstream")
	ErrParseFailure   = errors.New("upstream parse failure")
)

// UpstreamMeta is static per-plugin metadata.
type UpstreamMeta struct {
	Name            string
	RateLimitPerMin int
	DefaultSchedule string // cron expression
}

// RawRecord is an opaque upstream record as returned by fetch_raw,
// before normalization. The plugin alone knows its shape; the worker
// only persists it for replay/debugging.
type RawRecord = any

// Plugin is the uniform interface every scraper exposes.
type Plugin interface {
	UpstreamMeta() UpstreamMeta

	// FetchRaw retrieves the current upstream record set. May fail
	// with ErrNetworkFailure, ErrRateLimited, or ErrParseFailure.
	FetchRaw(ctx context.Context) ([]RawRecord, error)

	// Normalize converts raw records into the canonical event shape.
	// Implementations must set Source and may set ID; the worker fills
	// an unset Source or ID and always recomputes Hash after
	// normalization.
	Normalize(raw []RawRecord) ([]NormalizedEvent, error)

	// Cleanup releases any resources (browser sessions, connections).
	// Optional: plugins with nothing to release may no-op.
	Cleanup() error
}

// NormalizedEvent is an alias for eventmodel.Event, named for the
// plugin contract's vocabulary ("normalize(raw) -> Event[]" in §6).
type NormalizedEvent = eventmodel.Event
