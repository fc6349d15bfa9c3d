package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"status-relay/src/contracts"
	"status-relay/src/credentials"
	"status-relay/src/gitlab"
	"status-relay/src/relay"
	"status-relay/src/store"
)

// Server is the MCP server for the status relay.
type Server struct {
	mcpServer *server.MCPServer
	store     store.Store
	client    *gitlab.Client
	resolver  *credentials.Resolver
}

// NewServer creates a new MCP server over the given delivery log.
// client and resolver are only used to render previews; no status is ever sent.
func NewServer(st store.Store, client *gitlab.Client, resolver *credentials.Resolver) *Server {
	s := server.NewMCPServer(
		"status-relay",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		store:     st,
		client:    client,
		resolver:  resolver,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	previewTool := mcp.NewTool("preview_status",
		mcp.WithDescription("Show the commit status the relay would post for a build: the state and description, the outbound URL and the credential alias. Nothing is sent."),
		mcp.WithString("repo_id",
			mcp.Required(),
			mcp.Description("Target repository (GitLab project ID or path)"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Build status: FAILED, BROKEN, DENIED, PENDING, ACCEPTED or PASSED"),
		),
		mcp.WithNumber("number",
			mcp.Description("Build number"),
		),
		mcp.WithNumber("change_count",
			mcp.Description("Changes awaiting review (PENDING only)"),
		),
		mcp.WithString("commit",
			mcp.Description("Commit SHA"),
		),
		mcp.WithString("web_url",
			mcp.Description("Link to the build, sent as target_url"),
		),
		mcp.WithString("token_name",
			mcp.Description("Credential alias, e.g. generali_de"),
		),
	)

	listTool := mcp.NewTool("list_deliveries",
		mcp.WithDescription("List recent commit status deliveries, newest first. Returns summaries; use get_delivery for the full record including the error text."),
		mcp.WithString("repo_id",
			mcp.Description("Only deliveries for this repository"),
		),
		mcp.WithString("commit",
			mcp.Description("Only deliveries for this commit"),
		),
		mcp.WithString("outcome",
			mcp.Description("delivered, ignored or failed"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max deliveries (default: 20)"),
		),
	)

	getTool := mcp.NewTool("get_delivery",
		mcp.WithDescription("Get one delivery with its request, descriptor, outbound URL, HTTP status and error text."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Delivery ID from list_deliveries"),
		),
	)

	s.mcpServer.AddTool(previewTool, s.handlePreviewStatus)
	s.mcpServer.AddTool(listTool, s.handleListDeliveries)
	s.mcpServer.AddTool(getTool, s.handleGetDelivery)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handlePreviewStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID := request.GetString("repo_id", "")
	if repoID == "" {
		return mcp.NewToolResultError("repo_id parameter is required"), nil
	}

	build := contracts.Build{
		Number:      request.GetInt("number", 0),
		Status:      request.GetString("status", ""),
		ChangeCount: request.GetInt("change_count", 0),
		Commit:      request.GetString("commit", ""),
		WebURL:      request.GetString("web_url", ""),
	}
	routing := contracts.RoutingContext{
		RepoID:    repoID,
		TokenName: request.GetString("token_name", ""),
	}

	desc, url, alias := relay.Preview(s.client, s.resolver, relay.NewRequest(routing, build))
	return jsonResult(PreviewResponse{Descriptor: desc, URL: url, Credential: alias})
}

func (s *Server) handleListDeliveries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := contracts.DeliveryFilter{
		RepoID:  request.GetString("repo_id", ""),
		Commit:  request.GetString("commit", ""),
		Outcome: request.GetString("outcome", ""),
		Limit:   request.GetInt("limit", DefaultListLimit),
	}

	deliveries, err := s.store.ListDeliveries(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list deliveries: %v", err)), nil
	}

	response := ListResponse{Count: len(deliveries), Deliveries: make([]DeliverySummary, 0, len(deliveries))}
	for _, d := range deliveries {
		response.Deliveries = append(response.Deliveries, ToSummary(d))
	}
	return jsonResult(response)
}

func (s *Server) handleGetDelivery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	delivery, err := s.store.GetDelivery(ctx, id)
	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(fmt.Sprintf("delivery not found: id=%s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get delivery: %v", err)), nil
	}

	return jsonResult(delivery)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
