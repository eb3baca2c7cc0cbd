// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rss_relay"

// Label values.
const (
	StatusOK    = "ok"
	StatusError = "error"

	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultFiltered  = "filtered"

	ResultFound    = "found"
	ResultNotFound = "not_found"
)

// Metrics holds the relay collectors on a dedicated registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	feedFetches *prometheus.CounterVec
	entries     *prometheus.CounterVec
	chunkSends  *prometheus.CounterVec
	shortLinks  prometheus.Counter
	redirects   *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Total number of feed fetches",
		}, []string{"status"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Total number of processed feed entries",
		}, []string{"result"}),
		chunkSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_sends_total",
			Help:      "Total number of message chunk sends",
		}, []string{"status"}),
		shortLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_links_created_total",
			Help:      "Total number of short links created",
		}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Total number of short link lookups",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.feedFetches,
		m.entries,
		m.chunkSends,
		m.shortLinks,
		m.redirects,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FeedFetch counts a feed fetch with the given status.
func (m *Metrics) FeedFetch(status string) {
	if m == nil {
		return
	}
	m.feedFetches.WithLabelValues(status).Inc()
}

// Entry counts a processed entry with the given result.
func (m *Metrics) Entry(result string) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(result).Inc()
}

// ChunkSend counts a chunk send with the given status.
func (m *Metrics) ChunkSend(status string) {
	if m == nil {
		return
	}
	m.chunkSends.WithLabelValues(status).Inc()
}

// ShortLinkCreated counts a newly allocated short code.
func (m *Metrics) ShortLinkCreated() {
	if m == nil {
		return
	}
	m.shortLinks.Inc()
}

// Redirect counts a short link lookup with the given result.
func (m *Metrics) Redirect(result string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(result).Inc()
}
