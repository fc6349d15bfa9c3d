// Package contracts defines the data structures shared by the relay components.
package contracts

import "time"

// EventBuildStatusChanged is the only webhook event kind the relay forwards.
const EventBuildStatusChanged = "build-status-changed"

// StatusContext is the label attached to every commit status the relay posts.
const StatusContext = "UI Tests"

// Build statuses reported by the CI provider.
const (
	BuildFailed   = "FAILED"
	BuildBroken   = "BROKEN"
	BuildDenied   = "DENIED"
	BuildPending  = "PENDING"
	BuildAccepted = "ACCEPTED"
	BuildPassed   = "PASSED"
)

// Commit states understood by the source-hosting API.
const (
	StateFailed  = "failed"
	StatePending = "pending"
	StateSuccess = "success"
)

// Build is a single CI run as it arrives in the webhook body.
type Build struct {
	Number      int    `json:"number"`
	Status      string `json:"status"`
	ChangeCount int    `json:"changeCount"`
	WebURL      string `json:"webUrl"`
	// VCS revision the build ran against.
	Commit string `json:"commit"`

	// Carried through for the delivery log; the mapping ignores them.
	Result         string `json:"result,omitempty"`
	Branch         string `json:"branch,omitempty"`
	CommitterName  string `json:"committerName,omitempty"`
	StorybookURL   string `json:"storybookUrl,omitempty"`
	ComponentCount int    `json:"componentCount,omitempty"`
	SpecCount      int    `json:"specCount,omitempty"`
}

// WebhookEvent is the JSON body posted to /webhook.
type WebhookEvent struct {
	Event string `json:"event"`
	Build *Build `json:"build"`
}

// StatusDescriptor is the commit status derived from a Build.
// State and Description are empty for unrecognized build statuses.
type StatusDescriptor struct {
	State       string `json:"state,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context"`
}

// RoutingContext carries the per-request routing hints from the webhook query string.
type RoutingContext struct {
	RepoID    string `json:"repo_id"`
	TokenName string `json:"token_name,omitempty"`
}

// StatusRequest is one unit of forwarding work.
// Published to: RelayTopic (queued mode)
// Key: {repo_id}:{commit}
type StatusRequest struct {
	RequestID  string         `json:"request_id"`
	Routing    RoutingContext `json:"routing"`
	Build      Build          `json:"build"`
	ReceivedAt time.Time      `json:"received_at"`
}

// PartitionKey keeps updates for one commit in order on a single partition.
func (r StatusRequest) PartitionKey() string {
	return r.Routing.RepoID + ":" + r.Build.Commit
}

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// Delivery records one forwarding attempt in the delivery log.
type Delivery struct {
	ID         string           `json:"id"`
	Request    StatusRequest    `json:"request"`
	Descriptor StatusDescriptor `json:"descriptor"`
	// Credential alias that authorized the request ("default" or a token name).
	Credential string    `json:"credential"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	// Set when this delivery re-sent an earlier one.
	ReplayOf string `json:"replay_of,omitempty"`
}

// DeliveryFilter narrows ListDeliveries results. Zero fields match everything.
type DeliveryFilter struct {
	RepoID  string
	Commit  string
	Outcome string
	Limit   int
}

// Matches reports whether d satisfies every non-empty field of the filter.
func (f DeliveryFilter) Matches(d Delivery) bool {
	if f.RepoID != "" && d.Request.Routing.RepoID != f.RepoID {
		return false
	}
	if f.Commit != "" && d.Request.Build.Commit != f.Commit {
		return false
	}
	if f.Outcome != "" && d.Outcome != f.Outcome {
		return false
	}
	return true
}

// Default topic and consumer group for queued mode.
const (
	RelayTopic         = "status-relay.requests"
	RelayConsumerGroup = "status-relay-forwarder"
)
