package gitlab

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"status-relay/src/contracts"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://gitlab.com/api/v4/", want: "https://gitlab.com/api/v4/"},
		{in: "https://gitlab.com/api/v4", want: "https://gitlab.com/api/v4/"},
		{in: "https://gitlab.com/api/v4//", want: "https://gitlab.com/api/v4/"},
	}

	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		name      string
		desc      contracts.StatusDescriptor
		targetURL string
		want      string
	}{
		{
			name: "full descriptor",
			desc: contracts.StatusDescriptor{
				State:       "success",
				Description: "Build 42 passed unchanged.",
				Context:     "UI Tests",
			},
			targetURL: "http://x",
			want:      "context=UI%20Tests&target_url=http%3A%2F%2Fx&state=success&description=Build%2042%20passed%20unchanged.",
		},
		{
			name:      "context only",
			desc:      contracts.StatusDescriptor{Context: "UI Tests"},
			targetURL: "http://x",
			want:      "context=UI%20Tests&target_url=http%3A%2F%2Fx",
		},
		{
			name: "missing web url",
			desc: contracts.StatusDescriptor{State: "failed", Description: "Build 1 denied.", Context: "UI Tests"},
			want: "context=UI%20Tests&state=failed&description=Build%201%20denied.",
		},
		{
			name:      "literal plus is kept distinct from space",
			desc:      contracts.StatusDescriptor{Context: "UI Tests", Description: "a+b c"},
			targetURL: "",
			want:      "context=UI%20Tests&description=a%2Bb%20c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeQuery(tt.desc, tt.targetURL); got != tt.want {
				t.Errorf("EncodeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_SetCommitStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer default-token" {
			t.Errorf("unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/api/v4/projects/7/statuses/abc123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.ContentLength > 0 {
			t.Errorf("expected empty body, got %d bytes", r.ContentLength)
		}

		q := r.URL.Query()
		if q.Get("state") != "success" {
			t.Errorf("state = %q, want success", q.Get("state"))
		}
		if q.Get("description") != "Build 42 passed unchanged." {
			t.Errorf("description = %q", q.Get("description"))
		}
		if q.Get("context") != "UI Tests" {
			t.Errorf("context = %q, want UI Tests", q.Get("context"))
		}
		if q.Get("target_url") != "http://x" {
			t.Errorf("target_url = %q, want http://x", q.Get("target_url"))
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1, "status": "success"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/v4", Options{})

	result, err := client.SetCommitStatus(context.Background(), CommitStatus{
		RepoID:    "7",
		Commit:    "abc123",
		TargetURL: "http://x",
		Descriptor: contracts.StatusDescriptor{
			State:       "success",
			Description: "Build 42 passed unchanged.",
			Context:     "UI Tests",
		},
		Token: "default-token",
	})
	if err != nil {
		t.Fatalf("SetCommitStatus() error = %v", err)
	}

	if result.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", result.StatusCode)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if !strings.Contains(result.URL, "/projects/7/statuses/abc123?") {
		t.Errorf("URL = %q, want projects/7/statuses/abc123 path", result.URL)
	}
	if !strings.Contains(result.URL, "state=success&description=Build%2042%20passed%20unchanged.") {
		t.Errorf("URL = %q, want encoded state and description", result.URL)
	}
}

func TestClient_SetCommitStatus_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
		ignorable  bool
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, body: `{"message":"401 Unauthorized"}`, wantErr: ErrAuthFailed},
		{name: "forbidden", statusCode: http.StatusForbidden, body: `{"message":"403 Forbidden"}`, wantErr: ErrAuthFailed},
		{name: "not found", statusCode: http.StatusNotFound, body: `{"message":"404 Project Not Found"}`, wantErr: ErrProjectNotFound},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", statusCode: http.StatusInternalServerError, body: "boom", wantErr: ErrUnexpected},
		{
			name:       "transition conflict",
			statusCode: http.StatusBadRequest,
			body:       `{"message":"Cannot transition status via :enqueue from :pending (Reason(s): Status cannot transition via \"enqueue\")"}`,
			wantErr:    ErrTransitionConflict,
			ignorable:  true,
		},
		{name: "other bad request", statusCode: http.StatusBadRequest, body: `{"message":"state is invalid"}`, wantErr: ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, Options{})
			result, err := client.SetCommitStatus(context.Background(), CommitStatus{
				RepoID:     "1",
				Commit:     "deadbeef",
				Descriptor: contracts.StatusDescriptor{Context: "UI Tests"},
				Token:      "t",
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetCommitStatus() error = %v, want %v", err, tt.wantErr)
			}
			if IsIgnorable(err) != tt.ignorable {
				t.Errorf("IsIgnorable() = %v, want %v", IsIgnorable(err), tt.ignorable)
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error %T is not a *StatusError", err)
			}
			if statusErr.StatusCode != tt.statusCode {
				t.Errorf("StatusError.StatusCode = %d, want %d", statusErr.StatusCode, tt.statusCode)
			}
			if result.StatusCode != tt.statusCode {
				t.Errorf("Result.StatusCode = %d, want %d", result.StatusCode, tt.statusCode)
			}
			if result.Body != tt.body {
				t.Errorf("Result.Body = %q, want %q", result.Body, tt.body)
			}
		})
	}
}

func TestClient_SetCommitStatus_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	result, err := client.SetCommitStatus(context.Background(), CommitStatus{RepoID: "1", Commit: "c", Token: "t"})
	if err == nil {
		t.Fatal("expected error for 503, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestClient_SetCommitStatus_RetriesWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	result, err := client.SetCommitStatus(context.Background(), CommitStatus{RepoID: "1", Commit: "c", Token: "t"})
	if err != nil {
		t.Fatalf("SetCommitStatus() error = %v", err)
	}
	if result.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", result.StatusCode)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
}

func TestClient_SetCommitStatus_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(baseURL, Options{})
	result, err := client.SetCommitStatus(context.Background(), CommitStatus{RepoID: "1", Commit: "c", Token: "t"})
	if err == nil {
		t.Fatal("expected error for closed server, got nil")
	}
	if result.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", result.StatusCode)
	}
}

func TestClient_StatusURL_EscapesPathSegments(t *testing.T) {
	client := NewClient("https://gitlab.example.com/api/v4", Options{})
	got := client.StatusURL(CommitStatus{
		RepoID:     "group/project",
		Commit:     "abc123",
		Descriptor: contracts.StatusDescriptor{Context: "UI Tests"},
	})

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("StatusURL() produced unparsable URL %q: %v", got, err)
	}
	if u.EscapedPath() != "/api/v4/projects/group%2Fproject/statuses/abc123" {
		t.Errorf("escaped path = %q", u.EscapedPath())
	}
}
