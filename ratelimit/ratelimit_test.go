package ratelimit_test

import (
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestWaitAdmitsWithinRPM(t *testing.T) {
	l := ratelimit.New(600, 0) // 10/sec, fast enough for a unit test
	start := time.Now()
	for i := 0; i < 5; i++ {
		l.Wait()
	}
	status := l.StatusQuery()
	require.Equal(t, 5, status.RecentRequests)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestBackoffDoublesOnFailureAndHalvesOnSuccess(t *testing.T) {
	l := ratelimit.New(60, 0)
	l.Failure()
	first := l.StatusQuery().BackoffDelay
	require.Equal(t, time.Second, first)

	l.Failure()
	second := l.StatusQuery().BackoffDelay
	require.Equal(t, 2*time.Second, second)

	l.Success()
	third := l.StatusQuery().BackoffDelay
	require.Equal(t, time.Second, third)
}

func TestBackoffClampsToMax(t *testing.T) {
	l := ratelimit.New(60, 0)
	for i := 0; i < 20; i++ {
		l.Failure()
	}
	require.Equal(t, 60*time.Second, l.StatusQuery().BackoffDelay)
}
