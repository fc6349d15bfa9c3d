// Package webhook serves the inbound HTTP contract of the relay.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"status-relay/src/contracts"
	"status-relay/src/logger"
	"status-relay/src/metrics"
	"status-relay/src/relay"
)

// maxBodyBytes bounds the webhook body.
const maxBodyBytes = 1 << 20

// Response bodies.
const (
	MsgOK            = "OK"
	MsgMissingRepoID = "Need a repoId query param on webhook URL"
	MsgMissingBuild  = "build-status-changed event is missing its build"
)

// Handler accepts build-status webhooks and hands recognized events to a dispatcher.
type Handler struct {
	dispatcher relay.Dispatcher
	logger     logger.Logger
}

func NewHandler(d relay.Dispatcher, log logger.Logger) *Handler {
	return &Handler{dispatcher: d, logger: log}
}

// ServeHTTP handles POST /webhook?repoId={id}&tokenName={alias}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	routing := contracts.RoutingContext{
		RepoID:    strings.TrimSpace(query.Get("repoId")),
		TokenName: strings.TrimSpace(query.Get("tokenName")),
	}
	if routing.RepoID == "" {
		h.reject(w, http.StatusBadRequest, metrics.ReasonMissingRepoID, MsgMissingRepoID)
		return
	}

	var event contracts.WebhookEvent
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&event)
	// An empty body is treated as an event of no kind.
	if err != nil && !errors.Is(err, io.EOF) {
		h.reject(w, http.StatusBadRequest, metrics.ReasonInvalidBody, fmt.Sprintf("invalid webhook payload: %v", err))
		return
	}

	if event.Event != contracts.EventBuildStatusChanged {
		metrics.WebhooksReceived.WithLabelValues("other").Inc()
		h.logger.Debug("[Webhook] Ignoring event %q for repo %s", event.Event, routing.RepoID)
		writeText(w, http.StatusOK, MsgOK)
		return
	}
	metrics.WebhooksReceived.WithLabelValues(event.Event).Inc()

	if event.Build == nil {
		h.reject(w, http.StatusBadRequest, metrics.ReasonMissingBuild, MsgMissingBuild)
		return
	}

	req := relay.NewRequest(routing, *event.Build)
	h.logger.Info("[Webhook] Build %d %s for %s@%s (request %s)",
		req.Build.Number, req.Build.Status, routing.RepoID, req.Build.Commit, req.RequestID)

	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		h.logger.Error("[Webhook] Failed to accept request %s: %v", req.RequestID, err)
		h.reject(w, http.StatusInternalServerError, metrics.ReasonEnqueueFailed, "failed to enqueue status request")
		return
	}

	writeText(w, http.StatusOK, MsgOK)
}

func (h *Handler) reject(w http.ResponseWriter, code int, reason, msg string) {
	metrics.WebhooksRejected.WithLabelValues(reason).Inc()
	h.logger.Info("[Webhook] Rejected request (%d): %s", code, msg)
	writeText(w, code, msg)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, body)
}

// Health answers GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, MsgOK)
}
