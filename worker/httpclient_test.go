package worker_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/worker"
	"github.com/stretchr/testify/require"
)

func TestGetClientReusesSameClientPerSource(t *testing.T) {
	pool := worker.NewConnectionPool(worker.DefaultPoolConfig())
	defer pool.Close()

	a := pool.GetClient("venueA", time.Second)
	b := pool.GetClient("venueA", time.Second)
	require.Same(t, a, b)

	c := pool.GetClient("venueB", time.Second)
	require.NotSame(t, a, c)
}

func TestGetClientTracksRequestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pool := worker.NewConnectionPool(worker.DefaultPoolConfig())
	defer pool.Close()

	client := pool.GetClient("venueA", 2*time.Second)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	metrics := pool.Metrics()
	require.Equal(t, int64(1), metrics["venueA"]["total_requests"])
	require.Equal(t, int64(0), metrics["venueA"]["total_errors"])
}

func TestConfigureRebuildsClientOnNextGetClient(t *testing.T) {
	pool := worker.NewConnectionPool(worker.DefaultPoolConfig())
	defer pool.Close()

	first := pool.GetClient("venueA", time.Second)
	pool.Configure("venueA", worker.PoolConfig{MaxIdleConns: 1, MaxIdleConnsPerHost: 1, MaxConnsPerHost: 1, IdleConnTimeout: time.Second, DialTimeout: time.Second, KeepAlive: time.Second})
	second := pool.GetClient("venueA", time.Second)
	require.NotSame(t, first, second)
}
