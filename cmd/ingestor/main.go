// Command ingestor is the long-running daemon: it wires config,
// storage, cache, and the per-source plugin registry into the
// scheduler, serves the debug/metrics HTTP surface, and drains
// in-flight runs on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gigcatalog/ingestor/cache"
	"github.com/gigcatalog/ingestor/config"
	"github.com/gigcatalog/ingestor/errs"
	"github.com/gigcatalog/ingestor/logger"
	"github.com/gigcatalog/ingestor/observability"
	"github.com/gigcatalog/ingestor/plugin"
	"github.com/gigcatalog/ingestor/plugin/fixture"
	"github.com/gigcatalog/ingestor/query"
	"github.com/gigcatalog/ingestor/ratelimit"
	"github.com/gigcatalog/ingestor/redisclient"
	"github.com/gigcatalog/ingestor/scheduler"
	"github.com/gigcatalog/ingestor/storage"
	"github.com/gigcatalog/ingestor/storage/file"
	"github.com/gigcatalog/ingestor/storage/mongostore"
	"github.com/gigcatalog/ingestor/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	log.Info().Str("mode", string(cfg.Mode)).Msg("ingestor starting")

	metrics := observability.NewMetrics()
	health := observability.NewHealthRegistry(metrics)
	logs, err := observability.NewLogs(cfg.LogDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize log writer")
	}
	go pruneLogsDaily(logs, cfg.LogRetentionDays, log)

	catalogPath := filepath.Join(filepath.Dir(cfg.NormalizedDataDir), "catalog.json")
	fileStore, err := file.New(cfg.NormalizedDataDir, catalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file storage")
	}
	defer fileStore.Close()

	var primary storage.QueryStore = fileStore
	var fallback storage.QueryStore
	var docStore worker.DocUpserter

	if cfg.UseDatabase {
		mongoCfg := mongostore.Config{
			URI:              cfg.MongoURI,
			Database:         cfg.MongoDatabase,
			Collection:       "events",
			PoolMin:          uint64(cfg.MongoPoolMin),
			PoolMax:          uint64(cfg.MongoPoolMax),
			ConnectTimeout:   cfg.MongoConnectTimeout,
			SocketTimeout:    cfg.MongoSocketTimeout,
			SelectionTimeout: cfg.MongoSelectionTimeout,
			IdleTimeout:      cfg.MongoIdleTimeout,
		}
		connectCtx, cancel := context.WithTimeout(context.Background(), mongoCfg.ConnectTimeout)
		mongoStore, err := mongostore.Connect(connectCtx, mongoCfg)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("mongo connect failed — running on file storage only")
		} else {
			defer mongoStore.Close(context.Background())
			primary = mongoStore
			fallback = fileStore
			docStore = mongoStore
			log.Info().Msg("document store connected")
		}
	}

	c, err := cache.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer c.Close()

	queryService := query.New(primary, fallback, c, log)
	_ = queryService // exposed to the HTTP query API, outside this module's scope (spec.md §1)

	var redisClient *redisclient.Client
	if cfg.RedisEnabled {
		redisClient, err = redisclient.New(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis client init failed — rate limiting stays local-only")
			redisClient = nil
		} else if err := redisClient.Ping(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed — rate limiting stays local-only")
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Msg("shared rate-limit window connected")
		}
	}

	sourcesFile, err := scheduler.LoadSourcesFile(os.Getenv("INGESTOR_SOURCES_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sources file")
	}
	registry := buildSourceRegistry(cfg, sourcesFile, redisClient)

	allNames := make([]string, 0, len(registry))
	for name := range registry {
		allNames = append(allNames, name)
	}
	activeNames, err := scheduler.ResolveAllowDeny(allNames, cfg.EnabledSources, cfg.DisabledSources)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid enabled/disabled source configuration")
	}

	w := worker.New(worker.Deps{
		Snapshots:    fileStore,
		DocStore:     docStore,
		Sanitizer:    errs.Sanitizer{AutoFix: cfg.Mode == config.ModeProduction},
		Metrics:      metrics,
		Logs:         logs,
		Health:       health,
		RawDataDir:   cfg.RawDataDir,
		FetchTimeout: cfg.FetchTimeout,
		Log:          log,
	})

	runFunc := func(ctx context.Context, source, runID string) error {
		entry, ok := registry[source]
		if !ok {
			return nil
		}
		_, err := w.Run(ctx, source, entry.plugin, entry.limiter, runID)
		return err
	}

	sched := scheduler.New(log, scheduler.Options{
		DefaultSchedule: cfg.DefaultSchedule,
		StaggerMinutes:  cfg.StaggerMinutes,
		GraceTimeout:    cfg.GraceTimeout,
		PIDFile:         cfg.PIDFile,
	}, runFunc)

	schedules := make([]scheduler.SourceSchedule, 0, len(activeNames))
	for _, name := range activeNames {
		schedules = append(schedules, scheduler.SourceSchedule{Name: name, Schedule: registry[name].schedule})
	}
	if err := sched.RegisterStaggered(schedules); err != nil {
		log.Fatal().Err(err).Msg("failed to register sources")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler (is another instance running?)")
	}
	log.Info().Int("sources", len(schedules)).Msg("scheduler started")

	debugServer := &http.Server{
		Addr:    cfg.DebugAddr,
		Handler: observability.NewDebugRouter(log, metrics, health),
	}
	go func() {
		log.Info().Str("addr", cfg.DebugAddr).Msg("debug http server listening")
		if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("debug http server failed")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GraceTimeout+5*time.Second)
	defer cancel()

	if err := debugServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("debug http server shutdown error")
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	} else {
		log.Info().Msg("ingestor stopped gracefully")
	}
}

type sourceEntry struct {
	plugin   plugin.Plugin
	limiter  *ratelimit.Limiter
	schedule string
}

// buildSourceRegistry instantiates one plugin per configured source.
// Concrete per-upstream scrapers live outside this module (spec.md
// §1); this daemon only needs something satisfying plugin.Plugin, so
// it wires the deterministic fixture here as the stand-in a real
// deployment replaces with its own connectors. When redisClient is
// non-nil, each source's limiter also shares a fleet-wide rolling
// window over Redis instead of enforcing RPM purely locally.
func buildSourceRegistry(cfg *config.Config, sourcesFile scheduler.SourcesFile, redisClient *redisclient.Client) map[string]sourceEntry {
	registry := make(map[string]sourceEntry, len(sourcesFile.Sources))
	for _, src := range sourcesFile.Sources {
		if src.Disabled {
			continue
		}
		rpm := cfg.RateLimitPerMin
		limiter := ratelimit.New(rpm, 0)
		if redisClient != nil {
			limiter.SetSharedWindow(ratelimit.NewRedisWindow(redisClient.Raw(), src.Name, rpm))
		}
		registry[src.Name] = sourceEntry{
			plugin:   fixture.New(src.Name, rpm),
			limiter:  limiter,
			schedule: src.Schedule,
		}
	}
	return registry
}

func pruneLogsDaily(logs *observability.Logs, retentionDays int, log zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if err := logs.Prune(time.Now(), retentionDays); err != nil {
			log.Warn().Err(err).Msg("log prune failed")
		}
	}
}
