// Package metrics exposes Prometheus collectors for the HTTP layer and the
// dashboard cache.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fluxera"

// Metrics holds the service collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors plus the
// service's own collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard_cache",
			Name:      "lookups_total",
			Help:      "Dashboard cache lookups by key kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(m.httpRequests, m.cacheLookups)

	return m
}

// ObserveRequest counts a completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// CacheHit counts a cache hit for a key kind.
func (m *Metrics) CacheHit(kind string) {
	m.cacheLookups.WithLabelValues(kind, "hit").Inc()
}

// CacheMiss counts a cache miss for a key kind.
func (m *Metrics) CacheMiss(kind string) {
	m.cacheLookups.WithLabelValues(kind, "miss").Inc()
}

// RegisterCacheSize exposes the number of cached entries as reported by size.
func (m *Metrics) RegisterCacheSize(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard_cache",
		Name:      "entries",
		Help:      "Entries currently held by the dashboard cache, including expired ones not yet swept.",
	}, func() float64 {
		return float64(size())
	}))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
