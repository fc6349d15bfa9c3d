package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"status-relay/src/broker"
	"status-relay/src/contracts"
	"status-relay/src/credentials"
	"status-relay/src/gitlab"
	"status-relay/src/logger"
	"status-relay/src/metrics"
	"status-relay/src/relay"
	"status-relay/src/store"
)

type recordedRequest struct {
	path     string
	rawQuery string
	auth     string
}

// gitlabRecorder is a stand-in for the commit status API.
type gitlabRecorder struct {
	mu       sync.Mutex
	code     int
	requests []recordedRequest
}

func (g *gitlabRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, recordedRequest{
		path:     r.URL.Path,
		rawQuery: r.URL.RawQuery,
		auth:     r.Header.Get("Authorization"),
	})
	code := g.code
	g.mu.Unlock()
	w.WriteHeader(code)
}

func (g *gitlabRecorder) recorded() []recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]recordedRequest(nil), g.requests...)
}

func newDirectRouter(t *testing.T, downstreamCode int) (http.Handler, *gitlabRecorder, *store.MemoryStore) {
	rec := &gitlabRecorder{code: downstreamCode}
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	st := store.NewMemoryStore(0)
	resolver := credentials.NewResolver("default-token", map[string]string{"generali_de": "generali-token"})
	client := gitlab.NewClient(server.URL+"/api/v4/", gitlab.Options{})
	r := relay.New(client, resolver, st, nil, logger.NewSilentLogger())

	h := NewHandler(relay.NewDirectDispatcher(r), logger.NewSilentLogger())
	return NewRouter(h, metrics.NewHandler(), logger.NewSilentLogger()), rec, st
}

func post(router http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook_PassedBuildUsesDefaultCredential(t *testing.T) {
	router, rec, _ := newDirectRouter(t, http.StatusCreated)

	w := post(router, "/webhook?repoId=7",
		`{"event":"build-status-changed","build":{"status":"PASSED","number":42,"commit":"abc123","webUrl":"http://x"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	reqs := rec.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v4/projects/7/statuses/abc123", reqs[0].path)
	assert.Equal(t,
		"context=UI%20Tests&target_url=http%3A%2F%2Fx&state=success&description=Build%2042%20passed%20unchanged.",
		reqs[0].rawQuery)
	assert.Equal(t, "Bearer default-token", reqs[0].auth)
}

func TestWebhook_PendingBuildUsesAliasCredential(t *testing.T) {
	router, rec, _ := newDirectRouter(t, http.StatusCreated)

	w := post(router, "/webhook?repoId=9&tokenName=generali_de",
		`{"event":"build-status-changed","build":{"status":"PENDING","number":5,"changeCount":3,"commit":"def456","webUrl":"http://y"}}`)

	assert.Equal(t, http.StatusOK, w.Code)

	reqs := rec.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v4/projects/9/statuses/def456", reqs[0].path)
	assert.Contains(t, reqs[0].rawQuery, "state=pending&description=Build%205%20has%203%20changes")
	assert.Equal(t, "Bearer generali-token", reqs[0].auth)
}

func TestWebhook_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		wantBody string
	}{
		{
			name:     "missing repoId",
			target:   "/webhook",
			body:     `{"event":"build-status-changed","build":{"status":"PASSED","number":1,"commit":"a"}}`,
			wantBody: MsgMissingRepoID,
		},
		{
			name:     "blank repoId",
			target:   "/webhook?repoId=%20",
			body:     `{"event":"build-status-changed"}`,
			wantBody: MsgMissingRepoID,
		},
		{
			name:     "malformed json",
			target:   "/webhook?repoId=7",
			body:     `{"event":`,
			wantBody: "invalid webhook payload",
		},
		{
			name:     "recognized event without build",
			target:   "/webhook?repoId=7",
			body:     `{"event":"build-status-changed"}`,
			wantBody: MsgMissingBuild,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, rec, _ := newDirectRouter(t, http.StatusCreated)

			w := post(router, tt.target, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Empty(t, rec.recorded())
		})
	}
}

func TestWebhook_OtherEventsAreAcknowledgedWithoutForwarding(t *testing.T) {
	bodies := []string{
		`{"event":"build-created","build":{"status":"PENDING","number":1,"commit":"a"}}`,
		`{"event":"Build-Status-Changed","build":{"status":"PASSED","number":1,"commit":"a"}}`,
		`{}`,
		``,
	}

	for _, body := range bodies {
		router, rec, _ := newDirectRouter(t, http.StatusCreated)

		w := post(router, "/webhook?repoId=7", body)

		assert.Equal(t, http.StatusOK, w.Code, "body %q", body)
		assert.Equal(t, "OK", w.Body.String())
		assert.Empty(t, rec.recorded(), "body %q", body)
	}
}

func TestWebhook_DownstreamFailureStillReturnsOK(t *testing.T) {
	router, rec, st := newDirectRouter(t, http.StatusInternalServerError)

	w := post(router, "/webhook?repoId=7",
		`{"event":"build-status-changed","build":{"status":"BROKEN","number":3,"commit":"abc"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.recorded(), 1)

	failed, err := st.ListDeliveries(context.Background(), contracts.DeliveryFilter{Outcome: contracts.OutcomeFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestWebhook_MethodAndRoutes(t *testing.T) {
	router, _, _ := newDirectRouter(t, http.StatusCreated)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?repoId=7", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status_relay_http_response_duration_seconds")
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(ctx context.Context, req contracts.StatusRequest) error {
	return errors.New("broker unavailable")
}

func TestWebhook_DispatchFailureIs500(t *testing.T) {
	router := NewRouter(NewHandler(failingDispatcher{}, logger.NewSilentLogger()), metrics.NewHandler(), logger.NewSilentLogger())

	w := post(router, "/webhook?repoId=7",
		`{"event":"build-status-changed","build":{"status":"PASSED","number":1,"commit":"a"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_QueuedModeRespondsBeforeForwarding(t *testing.T) {
	rec := &gitlabRecorder{code: http.StatusCreated}
	server := httptest.NewServer(rec)
	defer server.Close()

	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := brk.Subscribe(ctx, contracts.RelayTopic, "test")
	require.NoError(t, err)

	h := NewHandler(relay.NewQueuedDispatcher(brk, contracts.RelayTopic), logger.NewSilentLogger())
	router := NewRouter(h, metrics.NewHandler(), logger.NewSilentLogger())

	w := post(router, "/webhook?repoId=7",
		`{"event":"build-status-changed","build":{"status":"ACCEPTED","number":8,"commit":"abc"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.recorded())

	select {
	case msg := <-msgs:
		assert.Equal(t, "7:abc", msg.Key)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for queued request")
	}
}
