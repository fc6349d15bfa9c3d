// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rejection reasons for WebhooksRejected.
const (
	ReasonMissingRepoID = "missing_repo_id"
	ReasonInvalidBody   = "invalid_body"
	ReasonMissingBuild  = "missing_build"
	ReasonEnqueueFailed = "enqueue_failed"
)

var (
	WebhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_relay_webhooks_received_total",
			Help: "Webhooks accepted by the relay, by event name.",
		},
		[]string{"event"},
	)
	WebhooksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_relay_webhooks_rejected_total",
			Help: "Webhooks answered with an error status.",
		},
		[]string{"reason"},
	)
)

var (
	Forwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_relay_forwards_total",
			Help: "Commit statuses sent downstream, by state and outcome.",
		},
		[]string{"state", "outcome"},
	)
	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "status_relay_forward_duration_seconds",
			Help: "How long a commit status POST took, retries included.",
		},
		[]string{"outcome"},
	)
	DuplicatesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "status_relay_duplicates_skipped_total",
			Help: "Webhooks dropped because an identical one was forwarded recently.",
		},
	)
)

var (
	HTTPResponseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "status_relay_http_response_duration_seconds",
			Help: "How long requests are taking to be served.",
		},
		[]string{"code", "route"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(route string, code int, seconds float64) {
	HTTPResponseDuration.WithLabelValues(strconv.Itoa(code), route).Observe(seconds)
}

// NewHandler serves every relay collector plus the Go runtime and process collectors.
func NewHandler() http.Handler {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		WebhooksReceived,
		WebhooksRejected,

		Forwards,
		ForwardDuration,
		DuplicatesSkipped,

		HTTPResponseDuration,
	)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
