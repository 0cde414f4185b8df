package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moolen/vigil/internal/endpoints"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func testContext() PipelineContext {
	return PipelineContext{
		PipelineID:   "pipe-42",
		Environment:  "staging",
		Namespace:    "shop",
		Commit:       "abcdef1234567890",
		DashboardURL: "http://grafana.example",
		MetricsURL:   "http://prom.example:9090",
	}
}

func TestSend_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{name: "nothing"},
		{name: "token only", token: "123:abc"},
		{name: "chat only", chatID: "-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTelegram(Options{Token: tt.token, ChatID: tt.chatID, BaseURL: srv.URL})

			res := n.Send(context.Background(), "deploy blocked", SeverityCritical)

			assert.False(t, res.Sent)
			assert.Equal(t, ErrNotConfigured.Error(), res.Error)
			assert.Contains(t, res.String(), "not configured")
		})
	}
	assert.Zero(t, calls.Load())
}

func TestSend(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegram(Options{
		Token:   "123:abc",
		ChatID:  "-100",
		BaseURL: srv.URL,
		Context: testContext(),
		Now:     func() time.Time { return sentAt },
	})

	res := n.Send(context.Background(), "health score 62.7", SeverityWarning)

	require.True(t, res.Sent, res.Error)
	assert.Equal(t, SeverityWarning, res.Severity)
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
	assert.Equal(t, Format("health score 62.7", SeverityWarning, testContext(), sentAt), got.Text)
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegram(Options{Token: "123:abc", ChatID: "-100", BaseURL: srv.URL})

	res := n.Send(context.Background(), "x", SeverityInfo)

	assert.False(t, res.Sent)
	assert.Contains(t, res.Error, "status 400")
	assert.Contains(t, res.Error, "chat not found")
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := NewTelegram(Options{Token: "123:secret", ChatID: "-100", BaseURL: url, Timeout: time.Second})

	res := n.Send(context.Background(), "x", SeverityInfo)

	assert.False(t, res.Sent)
	assert.NotEmpty(t, res.Error)
	assert.NotContains(t, res.Error, "secret")
}

func TestFormat(t *testing.T) {
	msg := Format("3 pods not ready", SeverityCritical, testContext(), sentAt)

	assert.Equal(t, "🚨 *AI Observability Alert*\n\n"+
		"*Pipeline:* `pipe-42`\n"+
		"*Environment:* `staging`\n"+
		"*Namespace:* `shop`\n"+
		"*Commit:* `abcdef12`\n"+
		"*Time:* 2024-03-01 12:30:00 UTC\n\n"+
		"*Alert:*\n3 pods not ready\n\n"+
		"*Quick Actions:*\n"+
		"• [View Dashboard](http://grafana.example)\n"+
		"• [Check Metrics](http://prom.example:9090)\n"+
		"• Run: `kubectl get pods -n shop`", msg)
}

func TestFormat_OmitsUnusableLinks(t *testing.T) {
	pc := testContext()
	pc.DashboardURL = endpoints.MockDashboardURL
	pc.MetricsURL = endpoints.Unset
	pc.Commit = "abc"

	msg := Format("x", SeverityInfo, pc, sentAt)

	assert.NotContains(t, msg, "View Dashboard")
	assert.NotContains(t, msg, "Check Metrics")
	assert.Contains(t, msg, "*Commit:* `abc`")
	assert.Contains(t, msg, "kubectl get pods -n shop")
}

func TestSeverityEmoji(t *testing.T) {
	tests := map[Severity]string{
		SeverityCritical:   "🚨",
		"CRITICAL":         "🚨",
		SeverityWarning:    "⚠️",
		SeverityInfo:       "ℹ️",
		SeveritySuccess:    "✅",
		SeverityDeployment: "🚀",
		SeverityRollback:   "🔄",
		"page":             "🔔",
	}
	for sev, want := range tests {
		assert.Equal(t, want, sev.Emoji(), string(sev))
	}
}

func TestNoop(t *testing.T) {
	res := Noop{}.Send(context.Background(), "x", SeverityInfo)
	assert.False(t, res.Sent)
}
