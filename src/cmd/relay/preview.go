package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"status-relay/src/contracts"
	"status-relay/src/credentials"
	"status-relay/src/gitlab"
	"status-relay/src/pipeline"
	"status-relay/src/relay"
)

// placeholderBase stands in for REST_API when it is not configured.
const placeholderBase = "{REST_API}"

var (
	previewRepoID    string
	previewTokenName string
	previewJSON      bool
)

var previewCmd = &cobra.Command{
	Use:   "preview [payload.json]",
	Short: "Show the commit status a webhook payload would produce",
	Long: `Read a webhook body from a file (or stdin when omitted or "-") and print the
state, description, outbound URL and credential alias. Nothing is sent.

Example:
  echo '{"event":"build-status-changed","build":{"status":"PASSED","number":42,"commit":"abc123"}}' \
    | relay preview --repo 7`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open payload: %w", err)
			}
			defer f.Close()
			in = f
		}

		event, err := parsePayload(in)
		if err != nil {
			return err
		}

		base := appConfig.RESTAPI
		if base == "" {
			base = placeholderBase
		}
		client := gitlab.NewClient(base, gitlab.Options{})
		result, err := preview(client, pipeline.NewResolver(appConfig), event, previewRepoID, previewTokenName)
		if err != nil {
			return err
		}

		if previewJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printPreview(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewRepoID, "repo", "", "target repository (the repoId query parameter)")
	previewCmd.Flags().StringVar(&previewTokenName, "token-name", "", "credential alias (the tokenName query parameter)")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print JSON")
	previewCmd.MarkFlagRequired("repo")
}

// previewResult is what the preview command prints.
type previewResult struct {
	Event      string                     `json:"event"`
	Forwarded  bool                       `json:"forwarded"`
	Descriptor contracts.StatusDescriptor `json:"descriptor"`
	URL        string                     `json:"url,omitempty"`
	Credential string                     `json:"credential,omitempty"`
}

func parsePayload(r io.Reader) (contracts.WebhookEvent, error) {
	var event contracts.WebhookEvent
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return event, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return event, nil
}

func preview(client *gitlab.Client, resolver *credentials.Resolver, event contracts.WebhookEvent, repoID, tokenName string) (previewResult, error) {
	result := previewResult{Event: event.Event}
	if strings.TrimSpace(repoID) == "" {
		return result, fmt.Errorf("--repo is required")
	}
	if event.Event != contracts.EventBuildStatusChanged {
		return result, nil
	}
	if event.Build == nil {
		return result, fmt.Errorf("build-status-changed event is missing its build")
	}

	req := relay.NewRequest(contracts.RoutingContext{RepoID: repoID, TokenName: tokenName}, *event.Build)
	result.Forwarded = true
	result.Descriptor, result.URL, result.Credential = relay.Preview(client, resolver, req)
	return result, nil
}

func printPreview(w io.Writer, r previewResult) {
	if !r.Forwarded {
		fmt.Fprintf(w, "Event %q is not forwarded (only %s is).\n", r.Event, contracts.EventBuildStatusChanged)
		return
	}

	state := r.Descriptor.State
	if state == "" {
		state = "(none, unrecognized build status)"
	}
	fmt.Fprintf(w, "State:       %s\n", state)
	fmt.Fprintf(w, "Description: %s\n", r.Descriptor.Description)
	fmt.Fprintf(w, "Context:     %s\n", r.Descriptor.Context)
	fmt.Fprintf(w, "Credential:  %s\n", r.Credential)
	fmt.Fprintf(w, "POST %s\n", r.URL)
}
