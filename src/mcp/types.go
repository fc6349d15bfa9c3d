// Package mcp exposes the relay's preview and delivery log as MCP tools.
package mcp

import (
	"time"

	"status-relay/src/contracts"
)

// DefaultListLimit is the list_deliveries limit when none is given.
const DefaultListLimit = 20

// PreviewResponse is the preview_status result. Nothing is sent.
type PreviewResponse struct {
	Descriptor contracts.StatusDescriptor `json:"descriptor"`
	URL        string                     `json:"url"`
	Credential string                     `json:"credential"`
}

// DeliverySummary is one list_deliveries row. Use get_delivery for the full record.
type DeliverySummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	RepoID      string    `json:"repo_id"`
	Commit      string    `json:"commit"`
	BuildNumber int       `json:"build_number"`
	BuildStatus string    `json:"build_status"`
	State       string    `json:"state,omitempty"`
	Outcome     string    `json:"outcome"`
	StatusCode  int       `json:"status_code,omitempty"`
	ReplayOf    string    `json:"replay_of,omitempty"`
}

// ListResponse is the list_deliveries result.
type ListResponse struct {
	Count      int               `json:"count"`
	Deliveries []DeliverySummary `json:"deliveries"`
}

// ToSummary trims a delivery down to what an agent needs to pick one.
func ToSummary(d contracts.Delivery) DeliverySummary {
	return DeliverySummary{
		ID:          d.ID,
		CreatedAt:   d.CreatedAt,
		RepoID:      d.Request.Routing.RepoID,
		Commit:      d.Request.Build.Commit,
		BuildNumber: d.Request.Build.Number,
		BuildStatus: d.Request.Build.Status,
		State:       d.Descriptor.State,
		Outcome:     d.Outcome,
		StatusCode:  d.StatusCode,
		ReplayOf:    d.ReplayOf,
	}
}
