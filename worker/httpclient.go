package worker

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// PoolConfig tunes the shared HTTP transport used to reach one
// source's upstream.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// DefaultPoolConfig returns sane defaults for a per-source scraper
// client: one upstream host, modest concurrency.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		MaxConnsPerHost:     16,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// poolMetrics tracks per-source connection pool utilization.
type poolMetrics struct {
	totalRequests sync.Map // map[string]*int64
	totalErrors   sync.Map // map[string]*int64
}

// ConnectionPool manages a shared http.Transport/http.Client per
// source, so repeated fetch_raw calls against the same upstream reuse
// connections instead of each call paying a fresh TLS handshake.
type ConnectionPool struct {
	mu         sync.RWMutex
	transports map[string]*http.Transport
	clients    map[string]*http.Client
	configs    map[string]PoolConfig
	defaults   PoolConfig
	metrics    *poolMetrics
}

// NewConnectionPool creates a pool using defaults for any source
// without an explicit Configure call.
func NewConnectionPool(defaults PoolConfig) *ConnectionPool {
	return &ConnectionPool{
		transports: make(map[string]*http.Transport),
		clients:    make(map[string]*http.Client),
		configs:    make(map[string]PoolConfig),
		defaults:   defaults,
		metrics:    &poolMetrics{},
	}
}

// Configure sets a custom pool configuration for one source, dropping
// any already-built transport/client so the next GetClient rebuilds it.
func (p *ConnectionPool) Configure(source string, cfg PoolConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs[source] = cfg
	delete(p.transports, source)
	delete(p.clients, source)
}

// GetClient returns the shared HTTP client for source, building it
// (and its transport) on first access and applying timeout as the
// client-level deadline for fetch_raw.
func (p *ConnectionPool) GetClient(source string, timeout time.Duration) *http.Client {
	p.mu.RLock()
	if c, ok := p.clients[source]; ok {
		p.mu.RUnlock()
		return c
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[source]; ok {
		return c
	}

	cfg := p.configFor(source)
	transport := p.createTransport(cfg)
	p.transports[source] = transport

	client := &http.Client{
		Transport: &metricsRoundTripper{inner: transport, source: source, metrics: p.metrics},
		Timeout:   timeout,
	}
	p.clients[source] = client
	return client
}

// Metrics returns request/error counters per source.
func (p *ConnectionPool) Metrics() map[string]map[string]int64 {
	result := make(map[string]map[string]int64)
	collect := func(store *sync.Map, field string) {
		store.Range(func(key, value any) bool {
			name := key.(string)
			if _, ok := result[name]; !ok {
				result[name] = make(map[string]int64)
			}
			result[name][field] = atomic.LoadInt64(value.(*int64))
			return true
		})
	}
	collect(&p.metrics.totalRequests, "total_requests")
	collect(&p.metrics.totalErrors, "total_errors")
	return result
}

// Close releases idle connections across all sources.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}

func (p *ConnectionPool) configFor(source string) PoolConfig {
	if cfg, ok := p.configs[source]; ok {
		return cfg
	}
	return p.defaults
}

func (p *ConnectionPool) createTransport(cfg PoolConfig) *http.Transport {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}
	return &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
}

type metricsRoundTripper struct {
	inner   http.RoundTripper
	source  string
	metrics *poolMetrics
}

func (m *metricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt64(m.counter(&m.metrics.totalRequests), 1)
	resp, err := m.inner.RoundTrip(req)
	if err != nil {
		atomic.AddInt64(m.counter(&m.metrics.totalErrors), 1)
		return nil, err
	}
	return resp, nil
}

func (m *metricsRoundTripper) counter(store *sync.Map) *int64 {
	if val, ok := store.Load(m.source); ok {
		return val.(*int64)
	}
	counter := new(int64)
	actual, _ := store.LoadOrStore(m.source, counter)
	return actual.(*int64)
}
