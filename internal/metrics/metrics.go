// Package metrics exposes Prometheus collectors for the jobscout service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal                *prometheus.CounterVec
	crawlPagesTotal            *prometheus.CounterVec
	postingsInsertedTotal      *prometheus.CounterVec
	postingsDuplicateTotal     *prometheus.CounterVec
	alertsSentTotal            prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_crawls_total",
				Help: "Total number of crawl invocations, labeled by source and status.",
			},
			[]string{"source", "status"},
		)

		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_crawl_pages_total",
				Help: "Total number of result pages extracted, labeled by source.",
			},
			[]string{"source"},
		)

		postingsInsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_postings_inserted_total",
				Help: "Total number of new postings persisted, labeled by source.",
			},
			[]string{"source"},
		)

		postingsDuplicateTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_postings_duplicate_total",
				Help: "Total number of postings skipped by the link uniqueness constraint.",
			},
			[]string{"source"},
		)

		alertsSentTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobscout_alerts_sent_total",
				Help: "Total number of alert emails delivered.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl increments the crawl invocation counter.
func ObserveCrawl(source string, status string) {
	if crawlsTotal == nil {
		return
	}
	crawlsTotal.WithLabelValues(source, status).Inc()
}

// ObservePage increments the extracted-page counter.
func ObservePage(source string) {
	if crawlPagesTotal == nil {
		return
	}
	crawlPagesTotal.WithLabelValues(source).Inc()
}

// ObservePersist records dedup-gate outcomes for one batch.
func ObservePersist(source string, inserted, duplicates int) {
	if postingsInsertedTotal == nil {
		return
	}
	postingsInsertedTotal.WithLabelValues(source).Add(float64(inserted))
	postingsDuplicateTotal.WithLabelValues(source).Add(float64(duplicates))
}

// ObserveAlertSent increments the alert delivery counter.
func ObserveAlertSent() {
	if alertsSentTotal == nil {
		return
	}
	alertsSentTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
