package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/spa-line-booking/internal/flow"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

type recordedCall struct {
	method   string
	path     string
	auth     string
	retryKey string
	body     map[string]any
}

type fakeLineAPI struct {
	mu     sync.Mutex
	calls  []recordedCall
	status int
}

func (f *fakeLineAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{
		method:   r.Method,
		path:     r.URL.Path,
		auth:     r.Header.Get("Authorization"),
		retryKey: r.Header.Get("X-Line-Retry-Key"),
	}
	if r.Body != nil && r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&call.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
		return
	}
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(`{"displayName":"Somchai","userId":"U1","pictureUrl":"https://profile.line-scdn.net/abc","language":"th"}`))
		return
	}
	_, _ = w.Write([]byte(`{"sentMessages":[{"id":"1","quoteToken":"q"}]}`))
}

func newTestClient(t *testing.T, api *fakeLineAPI, m *metrics.FlowMetrics) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := NewClient("token-123", WithEndpoint(srv.URL), WithLogger(logging.Discard()), WithMetrics(m))
	require.NoError(t, err)
	return client
}

func TestClient_Reply(t *testing.T) {
	api := &fakeLineAPI{}
	client := newTestClient(t, api, nil)

	err := client.Reply(context.Background(), "rt-1", flow.Text{
		Body:    "hello",
		Choices: []flow.Choice{{Label: "ยกเลิก", Data: "action=cancel", DisplayText: "ยกเลิก"}},
	})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	call := api.calls[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v2/bot/message/reply", call.path)
	assert.Equal(t, "Bearer token-123", call.auth)
	assert.Equal(t, "rt-1", call.body["replyToken"])

	msgs := call.body["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "hello", msg["text"])
	items := msg["quickReply"].(map[string]any)["items"].([]any)
	action := items[0].(map[string]any)["action"].(map[string]any)
	assert.Equal(t, "postback", action["type"])
	assert.Equal(t, "action=cancel", action["data"])
}

func TestClient_PushCarriesRetryKey(t *testing.T) {
	api := &fakeLineAPI{}
	client := newTestClient(t, api, nil)

	require.NoError(t, client.Push(context.Background(), "U1", flow.Text{Body: "a"}))
	require.NoError(t, client.Push(context.Background(), "U1", flow.Text{Body: "b"}))

	require.Len(t, api.calls, 2)
	assert.Equal(t, "/v2/bot/message/push", api.calls[0].path)
	assert.Equal(t, "U1", api.calls[0].body["to"])
	assert.NotEmpty(t, api.calls[0].retryKey)
	assert.NotEqual(t, api.calls[0].retryKey, api.calls[1].retryKey)
}

func TestClient_Profile(t *testing.T) {
	api := &fakeLineAPI{}
	client := newTestClient(t, api, nil)

	profile, err := client.Profile(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Somchai", profile.DisplayName)
	assert.Equal(t, "https://profile.line-scdn.net/abc", profile.PictureURL)
	assert.Equal(t, "/v2/bot/profile/U1", api.calls[0].path)
}

func TestClient_ErrorsAreCounted(t *testing.T) {
	api := &fakeLineAPI{status: http.StatusBadRequest}
	reg := prometheus.NewRegistry()
	client := newTestClient(t, api, metrics.NewFlowMetrics(reg))

	err := client.Reply(context.Background(), "expired", flow.Text{Body: "late"})
	require.Error(t, err)

	series, err := testutil.GatherAndCount(reg, "spa_outbound_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestClient_TrimsToFiveMessages(t *testing.T) {
	api := &fakeLineAPI{}
	client := newTestClient(t, api, nil)

	msgs := make([]flow.Message, 7)
	for i := range msgs {
		msgs[i] = flow.Text{Body: "m"}
	}
	require.NoError(t, client.Reply(context.Background(), "rt", msgs...))
	assert.Len(t, api.calls[0].body["messages"].([]any), maxMessagesPerCall)
}
