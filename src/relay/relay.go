// Package relay turns StatusRequests into commit statuses and records each attempt.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"status-relay/src/contracts"
	"status-relay/src/credentials"
	"status-relay/src/gitlab"
	"status-relay/src/logger"
	"status-relay/src/metrics"
	"status-relay/src/sanitize"
	"status-relay/src/status"
	"status-relay/src/store"
)

// maxErrorText bounds the error text kept on a delivery.
const maxErrorText = 512

// ErrDuplicate is returned by Handle when an identical request was forwarded
// inside the dedupe window.
var ErrDuplicate = errors.New("duplicate status request")

// Forwarder posts one commit status. *gitlab.Client implements it.
type Forwarder interface {
	SetCommitStatus(ctx context.Context, status gitlab.CommitStatus) (*gitlab.Result, error)
}

// Relay composes the mapper, the credential resolver and the forwarder.
type Relay struct {
	forwarder Forwarder
	resolver  *credentials.Resolver
	store     store.Store
	deduper   *Deduper
	logger    logger.Logger
	now       func() time.Time
}

// New creates a relay. deduper may be nil.
func New(fwd Forwarder, resolver *credentials.Resolver, st store.Store, deduper *Deduper, log logger.Logger) *Relay {
	return &Relay{
		forwarder: fwd,
		resolver:  resolver,
		store:     st,
		deduper:   deduper,
		logger:    log,
		now:       time.Now,
	}
}

// NewRequest wraps a routing context and build into a StatusRequest with a fresh ID.
func NewRequest(routing contracts.RoutingContext, build contracts.Build) contracts.StatusRequest {
	return contracts.StatusRequest{
		RequestID:  uuid.NewString(),
		Routing:    routing,
		Build:      build,
		ReceivedAt: time.Now().UTC(),
	}
}

// Handle forwards one request and records the delivery.
//
// A downstream rejection is returned as an error together with the recorded
// delivery. GitLab's transition conflicts count as ignored and return no error.
func (r *Relay) Handle(ctx context.Context, req contracts.StatusRequest) (*contracts.Delivery, error) {
	if !r.deduper.Claim(req) {
		metrics.DuplicatesSkipped.Inc()
		r.logger.Info("[Relay] Skipping duplicate %s build %d (%s) for %s",
			req.Build.Status, req.Build.Number, req.Build.Commit, req.Routing.RepoID)
		return nil, ErrDuplicate
	}

	delivery, err := r.forward(ctx, req, "")
	if delivery == nil || delivery.Outcome == contracts.OutcomeFailed {
		// Let a retry of the same webhook through.
		r.deduper.Release(req)
	}
	return delivery, err
}

// Replay forwards the request of a recorded delivery again and records a new delivery.
// The dedupe window does not apply.
func (r *Relay) Replay(ctx context.Context, deliveryID string) (*contracts.Delivery, error) {
	original, err := r.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	req := NewRequest(original.Request.Routing, original.Request.Build)
	r.logger.Info("[Relay] Replaying delivery %s as request %s", deliveryID, req.RequestID)
	return r.forward(ctx, req, deliveryID)
}

// Preview describes the request Handle would send without sending it.
func Preview(client *gitlab.Client, resolver *credentials.Resolver, req contracts.StatusRequest) (contracts.StatusDescriptor, string, string) {
	desc := status.Map(req.Build)
	_, alias := resolver.Resolve(req.Routing.TokenName)
	url := client.StatusURL(commitStatus(req, desc, ""))
	return desc, url, alias
}

func commitStatus(req contracts.StatusRequest, desc contracts.StatusDescriptor, token string) gitlab.CommitStatus {
	return gitlab.CommitStatus{
		RepoID:     req.Routing.RepoID,
		Commit:     req.Build.Commit,
		TargetURL:  req.Build.WebURL,
		Descriptor: desc,
		Token:      token,
	}
}

func (r *Relay) forward(ctx context.Context, req contracts.StatusRequest, replayOf string) (*contracts.Delivery, error) {
	desc := status.Map(req.Build)
	token, alias := r.resolver.Resolve(req.Routing.TokenName)
	if req.Routing.TokenName != "" && alias != req.Routing.TokenName {
		r.logger.Info("[Relay] Unknown token name %q, using the default credential", req.Routing.TokenName)
	}

	start := r.now()
	result, err := r.forwarder.SetCommitStatus(ctx, commitStatus(req, desc, token))
	elapsed := r.now().Sub(start)

	delivery := &contracts.Delivery{
		ID:         uuid.NewString(),
		Request:    req,
		Descriptor: desc,
		Credential: alias,
		Outcome:    outcome(err),
		CreatedAt:  start.UTC(),
		ReplayOf:   replayOf,
	}
	if result != nil {
		delivery.URL = result.URL
		delivery.StatusCode = result.StatusCode
		delivery.Attempts = result.Attempts
	}
	if err != nil {
		delivery.Error = sanitize.Body(err.Error(), maxErrorText)
	}

	metrics.Forwards.WithLabelValues(stateLabel(desc.State), delivery.Outcome).Inc()
	metrics.ForwardDuration.WithLabelValues(delivery.Outcome).Observe(elapsed.Seconds())

	switch delivery.Outcome {
	case contracts.OutcomeDelivered:
		r.logger.Info("[Relay] Set %s status %q on %s@%s (HTTP %d)",
			stateLabel(desc.State), desc.Description, req.Routing.RepoID, req.Build.Commit, delivery.StatusCode)
	case contracts.OutcomeIgnored:
		r.logger.Info("[Relay] GitLab ignored %s status on %s@%s: %s",
			stateLabel(desc.State), req.Routing.RepoID, req.Build.Commit, delivery.Error)
	default:
		r.logger.Error("[Relay] Failed to set status on %s@%s: %s",
			req.Routing.RepoID, req.Build.Commit, delivery.Error)
	}

	if saveErr := r.store.SaveDelivery(ctx, delivery); saveErr != nil {
		r.logger.Error("[Relay] Failed to record delivery %s: %v", delivery.ID, saveErr)
	}

	if delivery.Outcome == contracts.OutcomeFailed {
		return delivery, fmt.Errorf("failed to forward request %s: %w", req.RequestID, err)
	}
	return delivery, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return contracts.OutcomeDelivered
	case gitlab.IsIgnorable(err):
		return contracts.OutcomeIgnored
	default:
		return contracts.OutcomeFailed
	}
}

// stateLabel names the empty state for logs and metric labels.
func stateLabel(state string) string {
	if state == "" {
		return "none"
	}
	return state
}
