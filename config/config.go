package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode distinguishes development ergonomics (verbose logs, short
// intervals) from production defaults.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Config holds all ingestor configuration values, loaded from the
// environment (and an optional .env file) at process start.
type Config struct {
	Mode Mode

	// Scheduler
	DefaultSchedule string // 5-field cron expression
	StaggerMinutes  int
	EnabledSources  []string
	DisabledSources []string
	PIDFile         string
	GraceTimeout    time.Duration

	// Per-source defaults
	RateLimitPerMin int
	FetchTimeout    time.Duration

	// Storage paths
	RawDataDir        string
	NormalizedDataDir string
	LogDir            string
	LogRetentionDays  int

	// Document store
	UseDatabase           bool
	UseFileStorage        bool
	MongoURI              string
	MongoDatabase         string
	MongoPoolMin          int
	MongoPoolMax          int
	MongoIdleTimeout      time.Duration
	MongoConnectTimeout   time.Duration
	MongoSocketTimeout    time.Duration
	MongoSelectionTimeout time.Duration

	// Redis (optional distributed rate-limit window)
	RedisURL     string
	RedisEnabled bool

	// Debug/metrics HTTP surface
	DebugAddr string

	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file. Missing values fall back to the documented defaults.
func Load() *Config {
	_ = godotenv.Load()

	mode := Mode(getEnv("INGESTOR_MODE", string(ModeDevelopment)))

	cfg := &Config{
		Mode: mode,

		DefaultSchedule: getEnv("INGESTOR_DEFAULT_SCHEDULE", "0 */6 * * *"),
		StaggerMinutes:  getEnvInt("INGESTOR_STAGGER_MINUTES", 2),
		EnabledSources:  splitCSV(getEnv("INGESTOR_ENABLED_SOURCES", "")),
		DisabledSources: splitCSV(getEnv("INGESTOR_DISABLED_SOURCES", "")),
		PIDFile:         getEnv("INGESTOR_PID_FILE", "/tmp/ingestor.pid"),
		GraceTimeout:    time.Duration(getEnvInt("INGESTOR_GRACE_SEC", 30)) * time.Second,

		RateLimitPerMin: getEnvInt("INGESTOR_RATE_LIMIT_PER_MIN", 30),
		FetchTimeout:    time.Duration(getEnvInt("INGESTOR_TIMEOUT_MS", 30000)) * time.Millisecond,

		RawDataDir:        getEnv("INGESTOR_RAW_DATA_DIR", "./data/raw"),
		NormalizedDataDir: getEnv("INGESTOR_NORMALIZED_DATA_DIR", "./data/normalized"),
		LogDir:            getEnv("INGESTOR_LOG_DIR", "./data/logs"),
		LogRetentionDays:  getEnvInt("INGESTOR_LOG_RETENTION_DAYS", 14),

		UseDatabase:           getEnvBool("INGESTOR_USE_DATABASE", false),
		UseFileStorage:        getEnvBool("INGESTOR_USE_FILE_STORAGE", true),
		MongoURI:              getEnv("INGESTOR_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:         getEnv("INGESTOR_MONGO_DATABASE", "gigcatalog"),
		MongoPoolMin:          getEnvInt("INGESTOR_MONGO_POOL_MIN", 2),
		MongoPoolMax:          getEnvInt("INGESTOR_MONGO_POOL_MAX", 10),
		MongoIdleTimeout:      time.Duration(getEnvInt("INGESTOR_MONGO_IDLE_TIMEOUT_SEC", 30)) * time.Second,
		MongoConnectTimeout:   time.Duration(getEnvInt("INGESTOR_MONGO_CONNECT_TIMEOUT_SEC", 10)) * time.Second,
		MongoSocketTimeout:    time.Duration(getEnvInt("INGESTOR_MONGO_SOCKET_TIMEOUT_SEC", 30)) * time.Second,
		MongoSelectionTimeout: time.Duration(getEnvInt("INGESTOR_MONGO_SELECTION_TIMEOUT_SEC", 10)) * time.Second,

		RedisURL:     getEnv("INGESTOR_REDIS_URL", ""),
		RedisEnabled: getEnv("INGESTOR_REDIS_URL", "") != "",

		DebugAddr: getEnv("INGESTOR_DEBUG_ADDR", ":9090"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
