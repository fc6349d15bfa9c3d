// Package gitlab posts commit statuses to a GitLab-compatible REST API.
package gitlab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"status-relay/src/contracts"
)

// maxBodySnippet bounds how much of a response body is kept for diagnostics.
const maxBodySnippet = 2048

// Options configures the outbound HTTP behaviour.
type Options struct {
	// Timeout bounds one attempt. Zero means no timeout.
	Timeout time.Duration
	// RetryMax is the number of extra attempts on network errors, 429 and 5xx.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client posts commit statuses.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// CommitStatus is everything needed to post one status.
type CommitStatus struct {
	RepoID     string
	Commit     string
	TargetURL  string
	Descriptor contracts.StatusDescriptor
	// Token is the bearer credential.
	Token string
}

// Result describes the downstream response.
type Result struct {
	URL        string
	StatusCode int
	Body       string
	Attempts   int
}

// NewClient creates a client for the API rooted at baseURL (e.g. https://gitlab.com/api/v4/).
func NewClient(baseURL string, opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	// Hand the final response back so its status and body can be inspected.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = countAttempt
	rc.HTTPClient.Timeout = opts.Timeout

	return &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: rc,
	}
}

// NormalizeBaseURL makes sure the base URL ends with exactly one slash.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/"
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusURL builds {base}projects/{repoId}/statuses/{commit}?{query}.
func (c *Client) StatusURL(status CommitStatus) string {
	return fmt.Sprintf("%sprojects/%s/statuses/%s?%s",
		c.baseURL,
		url.PathEscape(status.RepoID),
		url.PathEscape(status.Commit),
		EncodeQuery(status.Descriptor, status.TargetURL),
	)
}

// EncodeQuery renders the status fields in the order context, target_url, state,
// description. Empty fields are left out and spaces are encoded as %20.
func EncodeQuery(desc contracts.StatusDescriptor, targetURL string) string {
	label := desc.Context
	if label == "" {
		label = contracts.StatusContext
	}

	pairs := [][2]string{
		{"context", label},
		{"target_url", targetURL},
		{"state", desc.State},
		{"description", desc.Description},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		parts = append(parts, p[0]+"="+queryEscape(p[1]))
	}
	return strings.Join(parts, "&")
}

func queryEscape(s string) string {
	// QueryEscape turns a literal '+' into %2B, so every remaining '+' is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

type attemptsKey struct{}

// countAttempt records the attempt number in the counter carried by the request context.
func countAttempt(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if counter, ok := req.Context().Value(attemptsKey{}).(*atomic.Int32); ok {
		counter.Store(int32(attempt + 1))
	}
}

// SetCommitStatus posts one commit status.
//
// https://docs.gitlab.com/ee/api/commits.html#set-the-pipeline-status-of-a-commit
func (c *Client) SetCommitStatus(ctx context.Context, status CommitStatus) (*Result, error) {
	statusURL := c.StatusURL(status)
	result := &Result{URL: statusURL}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, statusURL, nil)
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}

	attempts := new(atomic.Int32)
	req = req.WithContext(context.WithValue(ctx, attemptsKey{}, attempts))
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", status.Token))

	resp, err := c.httpClient.Do(req)
	result.Attempts = int(attempts.Load())
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return result, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
	result.StatusCode = resp.StatusCode
	result.Body = strings.TrimSpace(string(body))

	return result, classify(resp.StatusCode, result.Body)
}
