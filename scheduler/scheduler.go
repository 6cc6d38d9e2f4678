// Package scheduler implements the cron-driven trigger loop (C9):
// per-source cron schedules with stagger, allow/deny source lists, a
// PID-file lifecycle, and graceful drain on SIGTERM/SIGINT.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RunFunc executes one ingestion run for a source. cmd/ingestor
// supplies one that wraps worker.Worker.Run; kept as a function type
// here so scheduler has no import-time dependency on worker.
type RunFunc func(ctx context.Context, source string, runID string) error

// Options configures the scheduler.
type Options struct {
	DefaultSchedule string // 5-field cron expression, used when a source has no override
	StaggerMinutes  int
	GraceTimeout    time.Duration
	PIDFile         string
}

// Scheduler triggers per-source ingestion runs on cron schedules,
// staggered to avoid a thundering herd, skipping (not queuing) a tick
// whose previous run for that source is still in flight.
type Scheduler struct {
	log     zerolog.Logger
	cron    *cron.Cron
	opts    Options
	run     RunFunc
	release func() error

	mu       sync.Mutex
	inFlight map[string]bool

	wg sync.WaitGroup

	shuttingDown atomic.Bool
}

// New creates a scheduler bound to run for each source tick.
func New(log zerolog.Logger, opts Options, run RunFunc) *Scheduler {
	return &Scheduler{
		log:      log.With().Str("component", "scheduler").Logger(),
		cron:     cron.New(),
		opts:     opts,
		run:      run,
		inFlight: make(map[string]bool),
	}
}

// RegisterStaggered registers all sources in order, each delayed
// relative to the prior one by opts.StaggerMinutes — achieved by
// running every cron tick of the i-th source i*StaggerMinutes after
// the scheduled time, implemented with a timer goroutine rather than
// a cron field so the stagger is independent of schedule shape.
func (s *Scheduler) RegisterStaggered(sources []SourceSchedule) error {
	for i, src := range sources {
		schedule := src.Schedule
		if schedule == "" {
			schedule = s.opts.DefaultSchedule
		}
		delay := time.Duration(i*s.opts.StaggerMinutes) * time.Minute
		source := src.Name
		_, err := s.cron.AddFunc(schedule, func() { s.triggerAfter(source, delay) })
		if err != nil {
			return fmt.Errorf("register source %q with schedule %q: %w", source, schedule, err)
		}
	}
	return nil
}

// SourceSchedule pairs a source name with its (possibly empty)
// schedule override.
type SourceSchedule struct {
	Name     string
	Schedule string
}

func (s *Scheduler) triggerAfter(source string, delay time.Duration) {
	if delay <= 0 {
		s.trigger(source)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		<-t.C
		s.trigger(source)
	}()
}

// trigger runs one tick for source, skipping if the previous run for
// that source hasn't finished and skipping entirely during shutdown.
func (s *Scheduler) trigger(source string) {
	if s.shuttingDown.Load() {
		s.log.Info().Str("source", source).Msg("tick skipped: scheduler draining")
		return
	}

	s.mu.Lock()
	if s.inFlight[source] {
		s.mu.Unlock()
		s.log.Warn().Str("source", source).Msg("tick skipped: previous run still in flight")
		return
	}
	s.inFlight[source] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, source)
			s.mu.Unlock()
		}()

		runID := uuid.NewString()
		ctx := context.Background()
		log := s.log.With().Str("source", source).Str("run_id", runID).Logger()

		log.Info().Msg("ingestion run starting")
		start := time.Now()
		if err := s.run(ctx, source, runID); err != nil {
			log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("ingestion run failed")
			return
		}
		log.Info().Dur("elapsed", time.Since(start)).Msg("ingestion run finished")
	}()
}

// Start acquires the PID file and begins the cron loop. Returns an
// error (without starting) if another live process holds the PID
// file or it cannot be written.
func (s *Scheduler) Start() error {
	release, err := AcquirePIDFile(s.opts.PIDFile)
	if err != nil {
		return err
	}
	s.release = release
	s.cron.Start()
	s.log.Info().Str("pid_file", s.opts.PIDFile).Msg("scheduler started")
	return nil
}

// Shutdown stops new ticks, waits (bounded by opts.GraceTimeout) for
// in-flight runs to drain, and releases the PID file.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	cronCtx := s.cron.Stop()

	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	grace := s.opts.GraceTimeout
	if grace <= 0 {
		grace = 30 * time.Second
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-drained:
		s.log.Info().Msg("all in-flight runs drained")
	case <-timer.C:
		s.log.Warn().Dur("grace", grace).Msg("grace period elapsed with runs still in flight")
	}

	if s.release != nil {
		if err := s.release(); err != nil {
			return fmt.Errorf("release pid file: %w", err)
		}
	}
	return nil
}
