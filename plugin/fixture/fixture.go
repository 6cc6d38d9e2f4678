// Package fixture provides a deterministic in-memory Plugin used by
// worker and integration tests, standing in for the real JSON-selector
// scrapers that are out of scope for this module.
package fixture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/plugin"
)

// RawGig is the opaque shape this fixture pretends to scrape.
type RawGig struct {
	SourceID string
	Title    string
	Venue    string
	City     string
	When     time.Time
}

// Plugin is a scriptable fake: tests push RawGig batches via Enqueue
// and optionally force the next FetchRaw to fail.
type Plugin struct {
	meta plugin.UpstreamMeta

	mu       sync.Mutex
	queue    [][]RawGig
	failNext error
}

func New(name string, rpm int) *Plugin {
	return &Plugin{
		meta: plugin.UpstreamMeta{Name: name, RateLimitPerMin: rpm, DefaultSchedule: "0 */6 * * *"},
	}
}

func (p *Plugin) UpstreamMeta() plugin.UpstreamMeta { return p.meta }

// Enqueue schedules the next FetchRaw call to return gigs.
func (p *Plugin) Enqueue(gigs ...RawGig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, gigs)
}

// FailNext forces the next FetchRaw call to return err.
func (p *Plugin) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

func (p *Plugin) FetchRaw(ctx context.Context) ([]plugin.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return nil, err
	}
	if len(p.queue) == 0 {
		return nil, nil
	}
	batch := p.queue[0]
	p.queue = p.queue[1:]

	out := make([]plugin.RawRecord, len(batch))
	for i, g := range batch {
		out[i] = g
	}
	return out, nil
}

func (p *Plugin) Normalize(raw []plugin.RawRecord) ([]plugin.NormalizedEvent, error) {
	out := make([]plugin.NormalizedEvent, 0, len(raw))
	for _, r := range raw {
		g, ok := r.(RawGig)
		if !ok {
			return nil, fmt.Errorf("fixture: unexpected raw record type %T", r)
		}
		out = append(out, eventmodel.Event{
			Source:   p.meta.Name,
			SourceID: g.SourceID,
			Title:    g.Title,
			Venue:    eventmodel.Venue{Name: g.Venue, City: g.City},
			DateStart: g.When,
			Status:    eventmodel.StatusScheduled,
		})
	}
	return out, nil
}

func (p *Plugin) Cleanup() error { return nil }
