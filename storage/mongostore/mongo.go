// Package mongostore implements the document-store persistence
// adapter (§4.13) over go.mongodb.org/mongo-driver: events indexed by
// gigId, the predicate set from storage.Predicate, and a
// connection-health probe that forces a reconnect when it fails.
package mongostore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds connection tuning for the document store.
type Config struct {
	URI               string
	Database          string
	Collection        string // defaults to "events"
	PoolMin           uint64
	PoolMax           uint64
	ConnectTimeout    time.Duration
	SocketTimeout     time.Duration
	SelectionTimeout  time.Duration
	IdleTimeout       time.Duration
}

// Store is a storage.QueryStore backed by a Mongo collection.
type Store struct {
	cfg Config

	mu     sync.RWMutex
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client, ensures the unique gigId index, and returns
// a ready Store.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "events"
	}
	s := &Store{cfg: cfg}
	if err := s.reconnect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(s.cfg.URI).
		SetMinPoolSize(s.cfg.PoolMin).
		SetMaxPoolSize(s.cfg.PoolMax).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetSocketTimeout(s.cfg.SocketTimeout).
		SetServerSelectionTimeout(s.cfg.SelectionTimeout).
		SetMaxConnIdleTime(s.cfg.IdleTimeout)
}

func (s *Store) reconnect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, s.clientOptions())
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(s.cfg.Database).Collection(s.cfg.Collection)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "gigId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("ensure gigId index: %w", err)
	}

	s.mu.Lock()
	if s.client != nil {
		s.client.Disconnect(ctx)
	}
	s.client = client
	s.coll = coll
	s.mu.Unlock()
	return nil
}

// Healthy pings the current connection.
func (s *Store) Healthy(ctx context.Context) bool {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.SelectionTimeout)
	defer cancel()
	return client.Ping(pingCtx, readpref.Primary()) == nil
}

// ensureHealthy probes the connection and forces a reconnect on
// failure before any read/write (§4.13).
func (s *Store) ensureHealthy(ctx context.Context) error {
	if s.Healthy(ctx) {
		return nil
	}
	return s.reconnect(ctx)
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// Upsert writes events keyed by gigId, used by the ingestion worker
// (as worker.DocUpserter) when the document store is enabled alongside
// the file adapter.
func (s *Store) Upsert(ctx context.Context, events []eventmodel.Event) error {
	if err := s.ensureHealthy(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	coll := s.coll
	s.mu.RUnlock()

	for _, e := range events {
		_, err := coll.ReplaceOne(ctx, bson.M{"gigId": e.ID}, e, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("upsert %q: %w", e.ID, err)
		}
	}
	return nil
}

// Query applies storage.Predicate as a Mongo filter, sorted and
// paginated.
func (s *Store) Query(ctx context.Context, p storage.Predicate) ([]eventmodel.Event, int, error) {
	if err := s.ensureHealthy(ctx); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	coll := s.coll
	s.mu.RUnlock()

	filter := buildFilter(p)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	page, limit := p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	findOpts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(sortDoc(p.SortBy))

	cur, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	var events []eventmodel.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("decode results: %w", err)
	}
	return events, int(total), nil
}

// GetByID looks up a single event by gigId.
func (s *Store) GetByID(ctx context.Context, id string) (eventmodel.Event, bool, error) {
	if err := s.ensureHealthy(ctx); err != nil {
		return eventmodel.Event{}, false, err
	}
	s.mu.RLock()
	coll := s.coll
	s.mu.RUnlock()

	var e eventmodel.Event
	err := coll.FindOne(ctx, bson.M{"gigId": id}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return eventmodel.Event{}, false, nil
	}
	if err != nil {
		return eventmodel.Event{}, false, fmt.Errorf("find by id %q: %w", id, err)
	}
	return e, true, nil
}

func buildFilter(p storage.Predicate) bson.M {
	filter := bson.M{}

	if p.City != "" {
		filter["venue.city"] = bson.M{"$regex": "^" + regexEscape(p.City) + "$", "$options": "i"}
	}
	if p.VenueName != "" {
		filter["venue.name"] = bson.M{"$regex": "^" + regexEscape(p.VenueName) + "$", "$options": "i"}
	}
	if p.Source != "" {
		filter["source"] = p.Source
	}
	if p.TagContains != "" {
		filter["tags"] = bson.M{"$regex": regexEscape(p.TagContains), "$options": "i"}
	}
	if p.Text != "" {
		re := bson.M{"$regex": regexEscape(p.Text), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"artists": re},
			bson.M{"venue.name": re},
			bson.M{"tags": re},
		}
	}

	dateFilter := bson.M{}
	if p.FutureOnly && p.DateFrom.IsZero() {
		dateFilter["$gte"] = time.Now()
	}
	if !p.DateFrom.IsZero() {
		dateFilter["$gte"] = p.DateFrom
	}
	if !p.DateTo.IsZero() {
		dateFilter["$lte"] = p.DateTo
	}
	if len(dateFilter) > 0 {
		filter["dateStart"] = dateFilter
	}

	if p.PriceMax != nil {
		filter["price.min"] = bson.M{"$lte": *p.PriceMax}
	}
	if p.PriceMin != nil {
		filter["price.max"] = bson.M{"$gte": *p.PriceMin}
	}

	return filter
}

func sortDoc(sortBy string) bson.D {
	switch sortBy {
	case "venue":
		return bson.D{{Key: "venue.name", Value: 1}}
	case "name":
		return bson.D{{Key: "title", Value: 1}}
	default:
		return bson.D{{Key: "dateStart", Value: 1}}
	}
}

func regexEscape(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `$`, `\$`,
	)
	return replacer.Replace(s)
}
