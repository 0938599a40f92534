// Package metrics exposes Prometheus collectors for spider runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Item outcomes recorded by ObserveItem.
const (
	OutcomeAdded   = "added"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

var (
	registry = prometheus.NewRegistry()

	itemsTotal           *prometheus.CounterVec
	jobsTotal            *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	fetchRetriesTotal    *prometheus.CounterVec
	fetchExhaustedTotal  *prometheus.CounterVec
	rateLimitWaitSeconds *prometheus.HistogramVec
	lastRunTimestamp     *prometheus.GaugeVec

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		itemsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spider_items_total",
				Help: "Listing records handled, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)
		jobsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spider_jobs_total",
				Help: "Spider jobs closed, labeled by platform and terminal status.",
			},
			[]string{"platform", "status"},
		)
		fetchDurationSeconds = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spider_fetch_duration_seconds",
				Help:    "Latency of platform API calls including retries.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"platform"},
		)
		fetchRetriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spider_fetch_retries_total",
				Help: "Retried platform API attempts.",
			},
			[]string{"platform"},
		)
		fetchExhaustedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spider_fetch_exhausted_total",
				Help: "Platform API calls that failed on every allowed attempt.",
			},
			[]string{"platform"},
		)
		rateLimitWaitSeconds = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spider_rate_limit_wait_seconds",
				Help:    "Time spent waiting on the per-platform request limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"platform"},
		)
		lastRunTimestamp = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spider_last_run_timestamp_seconds",
				Help: "Unix time the last run for a platform closed.",
			},
			[]string{"platform", "status"},
		)
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDurationSeconds = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
		registry.MustRegister(
			httpRequestsTotal,
			httpRequestDurationSeconds,
			itemsTotal,
			jobsTotal,
			fetchDurationSeconds,
			fetchRetriesTotal,
			fetchExhaustedTotal,
			rateLimitWaitSeconds,
			lastRunTimestamp,
		)
	})
}

// Handler returns an http.Handler for exposing the spider registry.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveItem counts one record outcome.
func ObserveItem(platform, outcome string) {
	Init()
	itemsTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveJob counts a closed job and stamps its close time.
func ObserveJob(platform, status string, at time.Time) {
	Init()
	jobsTotal.WithLabelValues(platform, status).Inc()
	lastRunTimestamp.WithLabelValues(platform, status).Set(float64(at.Unix()))
}

// ObserveFetch records the latency of one logical fetch and its retries.
func ObserveFetch(platform string, duration time.Duration, attempts int) {
	Init()
	fetchDurationSeconds.WithLabelValues(platform).Observe(duration.Seconds())
	if attempts > 1 {
		fetchRetriesTotal.WithLabelValues(platform).Add(float64(attempts - 1))
	}
}

// ObserveFetchExhausted counts a fetch that used up its retry budget.
func ObserveFetchExhausted(platform string) {
	Init()
	fetchExhaustedTotal.WithLabelValues(platform).Inc()
}

// ObserveRateLimitWait records the duration of a limiter wait.
func ObserveRateLimitWait(platform string, duration time.Duration) {
	Init()
	rateLimitWaitSeconds.WithLabelValues(platform).Observe(duration.Seconds())
}

// Push sends the registry to a Pushgateway, grouped by instance=platform.
// Batch runs exit before a scrape could happen.
func Push(ctx context.Context, gatewayURL, job, platform string) error {
	if gatewayURL == "" {
		return nil
	}
	Init()
	err := push.New(gatewayURL, job).
		Gatherer(registry).
		Grouping("instance", platform).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
