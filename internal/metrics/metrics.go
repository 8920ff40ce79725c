// Package metrics exposes Prometheus collectors for the resolver service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Listing fetch outcomes.
const (
	ListingOK             = "ok"
	ListingHTTPError      = "http_error"
	ListingTransportError = "transport_error"
	ListingEmpty          = "empty"
)

// Probe outcomes.
const (
	ProbeHit   = "hit"
	ProbeMiss  = "miss"
	ProbeError = "error"
)

var (
	listingFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_listing_fetch_total",
			Help: "Total number of listing page fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	probeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_probe_total",
			Help: "Total number of media existence probes, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	postsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_posts_total",
			Help: "Total number of posts resolved, labeled by media kind and whether a file URL was found.",
		},
		[]string{"kind", "resolved"},
	)

	pipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_pipeline_duration_seconds",
			Help:    "Histogram of end-to-end listing resolution latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	rateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_ratelimit_rejections_total",
			Help: "Total number of API requests rejected by the admission limiter.",
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveListing counts one listing fetch outcome.
func ObserveListing(outcome string) {
	listingFetchTotal.WithLabelValues(outcome).Inc()
}

// ObserveProbe counts one existence probe outcome.
func ObserveProbe(outcome string) {
	probeTotal.WithLabelValues(outcome).Inc()
}

// ObservePost counts a resolved post.
func ObservePost(isVideo, resolved bool) {
	kind := "image"
	if isVideo {
		kind = "video"
	}
	postsTotal.WithLabelValues(kind, strconv.FormatBool(resolved)).Inc()
}

// ObservePipeline records the duration of one Search call.
func ObservePipeline(d time.Duration) {
	pipelineDurationSeconds.Observe(d.Seconds())
}

// ObserveRateLimitRejection counts a request turned away by the limiter.
func ObserveRateLimitRejection() {
	rateLimitRejectionsTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
