package webhook

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"status-relay/src/logger"
	"status-relay/src/metrics"
)

// Route names, also used as the "route" metric label.
const (
	RouteWebhook = "webhook"
	RouteHealth  = "healthz"
	RouteMetrics = "metrics"
)

// NewRouter wires the webhook, health and metrics endpoints.
func NewRouter(h *Handler, metricsHandler http.Handler, log logger.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/webhook", instrument(RouteWebhook, log, h)).Methods(http.MethodPost).Name(RouteWebhook)
	r.Handle("/healthz", instrument(RouteHealth, log, http.HandlerFunc(Health))).Methods(http.MethodGet).Name(RouteHealth)
	r.Handle("/metrics", instrument(RouteMetrics, log, metricsHandler)).Methods(http.MethodGet).Name(RouteMetrics)

	return r
}

// instrument records the response code and latency of every request on route.
func instrument(route string, log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		metrics.ObserveHTTP(route, m.Code, m.Duration.Seconds())
		log.Debug("[HTTP] %s %s -> %d (%s, %d bytes)", r.Method, r.URL.Path, m.Code, m.Duration, m.Written)
	})
}
