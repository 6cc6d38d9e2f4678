package cache_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/gigcatalog/ingestor/cache"
	"github.com/stretchr/testify/require"
)

func TestSerializeIsDeterministicRegardlessOfFilterOrder(t *testing.T) {
	a := cache.Key{City: "London", Page: 1, Filters: map[string]string{"genre": "rock", "free": "true"}}
	b := cache.Key{City: "london", Page: 1, Filters: map[string]string{"free": "true", "genre": "rock"}}
	require.Equal(t, a.Serialize(), b.Serialize())
}

func TestGetMissThenHotHit(t *testing.T) {
	c, err := cache.New()
	require.NoError(t, err)
	defer c.Close()

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}
	key := cache.Key{City: "nyc", Page: 1}

	v, hit, err := c.Get(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, "miss", hit)
	require.Equal(t, "value", v)

	v, hit, err = c.Get(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, "hot", hit)
	require.Equal(t, "value", v)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPageBeyondCeilingBypassesCache(t *testing.T) {
	c, err := cache.New()
	require.NoError(t, err)
	defer c.Close()

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}
	key := cache.Key{City: "nyc", Page: 11}

	_, hit, err := c.Get(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, "miss", hit)
	_, _, err = c.Get(context.Background(), key, fetch)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestWarmEntryPromotedAfterFourAccesses(t *testing.T) {
	c, err := cache.New()
	require.NoError(t, err)
	defer c.Close()

	fetch := func(ctx context.Context) (any, error) { return "value", nil }
	key := cache.Key{City: "nyc", Page: 7} // warm tier only

	for i := 0; i < 4; i++ {
		_, _, err := c.Get(context.Background(), key, fetch)
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, c.Stats().Promotions)
}

func TestInvalidateCityLeavesOtherCitiesIntact(t *testing.T) {
	c, err := cache.New()
	require.NoError(t, err)
	defer c.Close()

	fetch := func(ctx context.Context) (any, error) { return "v", nil }
	_, _, _ = c.Get(context.Background(), cache.Key{City: "London", Page: 1}, fetch)
	_, _, _ = c.Get(context.Background(), cache.Key{City: "Paris", Page: 1}, fetch)

	res := c.InvalidateCity("London", false)
	require.False(t, res.Partial)
	require.Equal(t, 1, res.Removed)

	var calls int32
	countingFetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	_, hit, _ := c.Get(context.Background(), cache.Key{City: "Paris", Page: 1}, countingFetch)
	require.Equal(t, "hot", hit)
	require.EqualValues(t, 0, calls)
}

func TestPartialInvalidationLeavesWarmTierIntact(t *testing.T) {
	c, err := cache.New()
	require.NoError(t, err)
	defer c.Close()

	fetch := func(ctx context.Context) (any, error) { return "v", nil }
	hotKey := cache.Key{City: "bristol", Page: 1}
	warmKey := cache.Key{City: "bristol", Page: 5}

	_, _, _ = c.Get(context.Background(), hotKey, fetch) // miss -> cached in hot
	_, _, _ = c.Get(context.Background(), hotKey, fetch) // hot hit

	_, _, _ = c.Get(context.Background(), warmKey, fetch) // miss -> cached in warm
	_, _, _ = c.Get(context.Background(), warmKey, fetch) // warm hit

	c.InvalidateCity("bristol", true)

	_, hit, _ := c.Get(context.Background(), hotKey, fetch)
	require.Equal(t, "miss", hit)

	_, hit, _ = c.Get(context.Background(), warmKey, fetch)
	require.Equal(t, "warm", hit)
}
