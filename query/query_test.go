package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gigcatalog/ingestor/cache"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/query"
	"github.com/gigcatalog/ingestor/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	events  []eventmodel.Event
	queryErr error
	getErr   error
}

func (f *fakeStore) Query(ctx context.Context, p storage.Predicate) ([]eventmodel.Event, int, error) {
	if f.queryErr != nil {
		return nil, 0, f.queryErr
	}
	return f.events, len(f.events), nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (eventmodel.Event, bool, error) {
	if f.getErr != nil {
		return eventmodel.Event{}, false, f.getErr
	}
	for _, e := range f.events {
		if e.ID == id {
			return e, true, nil
		}
	}
	return eventmodel.Event{}, false, nil
}

func (f *fakeStore) Healthy(ctx context.Context) bool { return f.queryErr == nil }

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestListRejectsInvalidTimeRange(t *testing.T) {
	store := &fakeStore{}
	svc := query.New(store, nil, newCache(t), zerolog.Nop())

	_, err := svc.List(context.Background(), "London", query.ListOptions{TimeRange: "decade"})
	require.ErrorIs(t, err, query.ErrInvalidTimeRange)
}

func TestListClampsLimitToMax(t *testing.T) {
	events := make([]eventmodel.Event, 150)
	for i := range events {
		events[i] = eventmodel.Event{ID: string(rune('a' + i%26))}
	}
	store := &fakeStore{events: events}
	svc := query.New(store, nil, newCache(t), zerolog.Nop())

	res, err := svc.List(context.Background(), "London", query.ListOptions{Limit: 500})
	require.NoError(t, err)
	require.Equal(t, "miss", res.CacheHit)
	require.Equal(t, 150, res.TotalCount)
	require.True(t, res.HasMore) // 1*100 < 150; an unclamped 500 would report false
}

func TestListFallsBackToSecondaryStoreOnPrimaryError(t *testing.T) {
	primary := &fakeStore{queryErr: errors.New("mongo down")}
	fallback := &fakeStore{events: []eventmodel.Event{{ID: "a"}}}
	svc := query.New(primary, fallback, newCache(t), zerolog.Nop())

	res, err := svc.List(context.Background(), "London", query.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
}

func TestDetailReturnsNilWhenAbsent(t *testing.T) {
	store := &fakeStore{}
	svc := query.New(store, nil, newCache(t), zerolog.Nop())

	e, err := svc.Detail(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestDetailFindsExistingEvent(t *testing.T) {
	store := &fakeStore{events: []eventmodel.Event{{ID: "a", Title: "Jazz Night"}}}
	svc := query.New(store, nil, newCache(t), zerolog.Nop())

	e, err := svc.Detail(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, "Jazz Night", e.Title)
}
