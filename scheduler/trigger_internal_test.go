package scheduler

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestTriggerSkipsReentrantTick(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	run := func(ctx context.Context, source, runID string) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	}

	opts := Options{
		DefaultSchedule: "@every 1h",
		GraceTimeout:    time.Second,
		PIDFile:         filepath.Join(t.TempDir(), "ingestor.pid"),
	}
	s := New(zerolog.Nop(), opts, run)
	require.NoError(t, s.Start())

	s.trigger("x")
	time.Sleep(20 * time.Millisecond)
	s.trigger("x") // should be skipped: previous call still blocked on release

	close(release)
	require.NoError(t, s.Shutdown(context.Background()))

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTriggerAfterSkippedDuringShutdown(t *testing.T) {
	var calls int32
	run := func(ctx context.Context, source, runID string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	opts := Options{
		DefaultSchedule: "@every 1h",
		GraceTimeout:    time.Second,
		PIDFile:         filepath.Join(t.TempDir(), "ingestor.pid"),
	}
	s := New(zerolog.Nop(), opts, run)
	require.NoError(t, s.Start())
	s.shuttingDown.Store(true)

	s.trigger("x")
	require.EqualValues(t, 0, atomic.LoadInt32(&calls))

	s.shuttingDown.Store(false)
	require.NoError(t, s.Shutdown(context.Background()))
}
