// Package worker implements the per-source ingestion pipeline (C4):
// acquire a rate-limit slot, fetch_raw, persist the raw payload,
// normalize, validate, diff against the previous snapshot, persist the
// merged snapshot atomically, and emit run stats.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gigcatalog/ingestor/catalog"
	"github.com/gigcatalog/ingestor/changedetect"
	"github.com/gigcatalog/ingestor/errs"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/observability"
	"github.com/gigcatalog/ingestor/plugin"
	"github.com/gigcatalog/ingestor/ratelimit"
	"github.com/gigcatalog/ingestor/storage"
	"github.com/rs/zerolog"
)

// DocUpserter is the subset of storage/mongostore.Store the worker
// needs. Declared here, satisfied by duck typing, so this package
// doesn't import mongostore directly; nil means the document store is
// disabled for this deployment.
type DocUpserter interface {
	Upsert(ctx context.Context, events []eventmodel.Event) error
}

// Deps are the dependencies one Worker needs to run any source.
type Deps struct {
	Snapshots   storage.SnapshotStore
	DocStore    DocUpserter // optional
	Sanitizer   errs.Sanitizer
	Metrics     *observability.Metrics
	Logs        *observability.Logs
	Health      *observability.HealthRegistry
	RawDataDir  string
	FetchTimeout time.Duration
	Log         zerolog.Logger
}

// Worker runs the ingestion pipeline for one or more sources, each
// behind its own Plugin and Limiter.
type Worker struct {
	deps Deps
}

// New returns a Worker sharing deps across every source it runs.
func New(deps Deps) *Worker {
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = 30 * time.Second
	}
	return &Worker{deps: deps}
}

// Result summarizes one Run's outcome for the caller (scheduler/CLI).
type Result struct {
	Source      string
	RecordsFound int
	New, Updated, Unchanged int
	Invalid     int
	Severity    errs.Severity
	Aborted     bool
}

// Run executes one ingestion pass for source. Its signature differs
// from scheduler.RunFunc; cmd/ingestor wraps it in a closure that looks
// up the source's plugin and limiter.
func (w *Worker) Run(ctx context.Context, source string, p plugin.Plugin, limiter *ratelimit.Limiter, runID string) (Result, error) {
	result := Result{Source: source}
	start := time.Now()
	log := w.deps.Log.With().Str("source", source).Str("runId", runID).Logger()

	defer p.Cleanup()

	limiter.Wait()

	fetchStart := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, w.deps.FetchTimeout)
	raw, err := p.FetchRaw(fetchCtx)
	cancel()
	fetchDuration := time.Since(fetchStart)
	w.observe("fetch", source, fetchDuration)

	if err != nil {
		limiter.Failure()
		result.Aborted = true
		w.recordFailure(source, runID, "fetch_raw failed", err, start)
		log.Error().Err(err).Dur("elapsed", fetchDuration).Msg("fetch_raw aborted run")
		return result, fmt.Errorf("fetch_raw %s: %w", source, err)
	}
	result.RecordsFound = len(raw)

	if err := w.persistRaw(source, runID, raw); err != nil {
		log.Warn().Err(err).Msg("failed to persist raw payload (non-fatal)")
	}

	normStart := time.Now()
	normalized, err := p.Normalize(raw)
	normDuration := time.Since(normStart)
	w.observe("normalize", source, normDuration)
	if err != nil {
		limiter.Failure()
		result.Aborted = true
		w.recordFailure(source, runID, "normalize failed", err, start)
		log.Error().Err(err).Msg("normalize aborted run")
		return result, fmt.Errorf("normalize %s: %w", source, errors.Join(plugin.ErrParseFailure, err))
	}

	stampIdentity(source, normalized)

	validateStart := time.Now()
	batch := errs.ValidateBatch(normalized, w.deps.Sanitizer)
	validateDuration := time.Since(validateStart)
	w.observe("validate", source, validateDuration)
	result.Invalid = len(batch.Invalid)
	result.Severity = errs.RunSeverity(len(normalized), len(batch.Invalid))
	if result.Invalid > 0 {
		log.Warn().Int("invalid", result.Invalid).Int("total", len(normalized)).
			Str("severity", string(result.Severity)).Msg("dropped invalid records")
	}

	previous, _, err := w.deps.Snapshots.LoadSnapshot(ctx, source)
	if err != nil {
		limiter.Failure()
		result.Aborted = true
		w.recordFailure(source, runID, "load previous snapshot failed", err, start)
		return result, fmt.Errorf("load snapshot %s: %w", source, err)
	}

	now := time.Now()
	changes := changedetect.Classify(batch.Valid, previous.Events)
	merged := changedetect.Merge(changes, previous.Events, now)
	result.New = len(changes.New)
	result.Updated = len(changes.Updated)
	result.Unchanged = len(changes.Unchanged)

	saveStart := time.Now()
	snapshot := catalog.Snapshot{Source: source, Events: merged, LastRun: now}
	if err := w.deps.Snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		limiter.Failure()
		result.Aborted = true
		w.recordFailure(source, runID, "save snapshot failed", err, start)
		return result, fmt.Errorf("save snapshot %s: %w", source, err)
	}
	if w.deps.DocStore != nil {
		if err := w.deps.DocStore.Upsert(ctx, merged); err != nil {
			log.Warn().Err(err).Msg("document store upsert failed (file snapshot still saved)")
		}
	}
	saveDuration := time.Since(saveStart)
	w.observe("save", source, saveDuration)

	limiter.Success()
	if w.deps.Health != nil {
		w.deps.Health.Report(source, true, result.RecordsFound)
	}
	totalElapsed := time.Since(start)
	w.writePerf(source, fetchDuration, normDuration, validateDuration, saveDuration, now, result.RecordsFound, totalElapsed)

	log.Info().
		Int("new", result.New).Int("updated", result.Updated).Int("unchanged", result.Unchanged).
		Int("invalid", result.Invalid).Dur("elapsed", time.Since(start)).Msg("run complete")

	return result, nil
}

func (w *Worker) observe(stage, source string, d time.Duration) {
	if w.deps.Metrics != nil {
		w.deps.Metrics.ObserveStageDuration(stage, source, d)
	}
}

func (w *Worker) recordFailure(source, runID, msg string, err error, start time.Time) {
	if w.deps.Health != nil {
		w.deps.Health.Report(source, false, 0)
	}
	if w.deps.Metrics != nil {
		w.deps.Metrics.RunsTotal.WithLabelValues(source, "failed").Inc()
		w.deps.Metrics.SourceErrors.WithLabelValues(source, string(observability.SeverityCritical)).Inc()
	}
	if w.deps.Logs != nil {
		_ = w.deps.Logs.WriteError(observability.ErrorLog{
			Timestamp: time.Now(),
			Source:    source,
			Error:     fmt.Sprintf("%s: %v", msg, err),
			Severity:  observability.SeverityCritical,
			Context:   map[string]any{"runId": runID, "elapsedMs": time.Since(start).Milliseconds()},
		})
	}
}

func (w *Worker) writePerf(source string, fetchDur, normDur, validateDur, saveDur time.Duration, now time.Time, recordCount int, totalElapsed time.Duration) {
	if w.deps.Logs == nil {
		return
	}
	throughput := 0.0
	if secs := totalElapsed.Seconds(); secs > 0 {
		throughput = float64(recordCount) / secs
	}
	_ = w.deps.Logs.WritePerf(observability.PerfLog{
		Timestamp: now,
		Source:    source,
		Metrics: observability.PerfMetrics{
			FetchMs:       fetchDur.Milliseconds(),
			NormalizeMs:   normDur.Milliseconds(),
			ValidateMs:    validateDur.Milliseconds(),
			SaveMs:        saveDur.Milliseconds(),
			ThroughputRPS: throughput,
		},
	})
	if w.deps.Metrics != nil {
		w.deps.Metrics.RunsTotal.WithLabelValues(source, "success").Inc()
		w.deps.Metrics.RecordsIngested.WithLabelValues(source).Add(float64(recordCount))
	}
}

// persistRaw writes the raw upstream payload under RawDataDir for
// debugging/replay. Best-effort: a failure here never aborts the run.
func (w *Worker) persistRaw(source, runID string, raw []plugin.RawRecord) error {
	if w.deps.RawDataDir == "" {
		return nil
	}
	dir := filepath.Join(w.deps.RawDataDir, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, runID+".json")
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// stampIdentity fills in Source and ID for any normalized record a
// plugin left unset and always recomputes Hash, so Normalize
// implementations only need to worry about the fields genuinely
// specific to their upstream.
func stampIdentity(source string, events []eventmodel.Event) {
	for i := range events {
		if events[i].Source == "" {
			events[i].Source = source
		}
		if events[i].ID == "" {
			events[i].ID = eventmodel.ID(events[i])
		}
		events[i].Hash = eventmodel.ContentHash(events[i])
	}
}
