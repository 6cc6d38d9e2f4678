package observability_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/observability"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestClassifyHealthThresholds(t *testing.T) {
	require.Equal(t, observability.HealthHealthy, observability.Classify(true, 2))
	require.Equal(t, observability.HealthHealthy, observability.Classify(true, 5))
	require.Equal(t, observability.HealthDegraded, observability.Classify(true, 1))
	require.Equal(t, observability.HealthFailed, observability.Classify(true, 0))
	require.Equal(t, observability.HealthFailed, observability.Classify(false, 10))
}

func TestHealthRegistryReportUpdatesGauge(t *testing.T) {
	m := observability.NewMetrics()
	h := observability.NewHealthRegistry(m)

	rec := h.Report("site-a", true, 3)
	require.Equal(t, observability.HealthHealthy, rec.Status)

	snap := h.Snapshot()
	require.Equal(t, observability.HealthHealthy, snap["site-a"].Status)
}

func TestLogsWriteRunErrorPerf(t *testing.T) {
	dir := t.TempDir()
	logs, err := observability.NewLogs(dir)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, logs.WriteRun(observability.RunLog{Type: "ingest_all", Timestamp: now}))
	require.NoError(t, logs.WriteError(observability.ErrorLog{Timestamp: now, Source: "site-a", Severity: observability.SeverityHigh}))
	require.NoError(t, logs.WritePerf(observability.PerfLog{Timestamp: now, Source: "site-a"}))

	require.FileExists(t, filepath.Join(dir, "run-2026-01-01.jsonl"))
	require.FileExists(t, filepath.Join(dir, "error-2026-01-01.jsonl"))
	require.FileExists(t, filepath.Join(dir, "perf-2026-01-01.jsonl"))
}

func TestDebugRouterHealthz(t *testing.T) {
	m := observability.NewMetrics()
	h := observability.NewHealthRegistry(m)
	router := observability.NewDebugRouter(zerolog.Nop(), m, h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDebugRouterMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	h := observability.NewHealthRegistry(m)
	router := observability.NewDebugRouter(zerolog.Nop(), m, h)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ingestor_duplicates_removed_total")
}
