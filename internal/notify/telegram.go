// Package notify sends pipeline notifications to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/endpoints"
	"github.com/moolen/vigil/internal/logging"
)

// ErrNotConfigured is reported when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram notifications not configured")

// DefaultBaseURL is the Telegram Bot API root.
const DefaultBaseURL = "https://api.telegram.org"

// Severity selects the emoji of a notification.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeverityInfo       Severity = "info"
	SeveritySuccess    Severity = "success"
	SeverityDeployment Severity = "deployment"
	SeverityRollback   Severity = "rollback"
)

var severityEmoji = map[Severity]string{
	SeverityCritical:   "🚨",
	SeverityWarning:    "⚠️",
	SeverityInfo:       "ℹ️",
	SeveritySuccess:    "✅",
	SeverityDeployment: "🚀",
	SeverityRollback:   "🔄",
}

// Emoji returns the emoji for s, or a bell for unknown severities.
func (s Severity) Emoji() string {
	if e, ok := severityEmoji[Severity(strings.ToLower(string(s)))]; ok {
		return e
	}
	return "🔔"
}

// PipelineContext is printed at the top of every notification.
type PipelineContext struct {
	PipelineID   string
	Environment  string
	Namespace    string
	Commit       string
	DashboardURL string
	MetricsURL   string
}

// Result describes the outcome of a Send. Send never returns an error.
type Result struct {
	Sent     bool     `json:"sent"`
	Severity Severity `json:"severity"`
	Error    string   `json:"error,omitempty"`
}

func (r Result) String() string {
	if r.Sent {
		return fmt.Sprintf("✅ notification sent (severity: %s)", r.Severity)
	}
	return "❌ " + r.Error
}

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, text string, severity Severity) Result
}

// Options configures a Telegram notifier.
type Options struct {
	Token   string
	ChatID  string
	BaseURL string
	Timeout time.Duration
	Context PipelineContext
	Now     func() time.Time
}

// Telegram posts Markdown messages via the Bot API sendMessage method.
type Telegram struct {
	opts       Options
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTelegram creates a notifier. Missing credentials are reported by Send.
func NewTelegram(opts Options) *Telegram {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Telegram{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logging.GetLogger("notify"),
	}
}

// Configured reports whether both token and chat id are set.
func (t *Telegram) Configured() bool {
	return t.opts.Token != "" && t.opts.ChatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send formats text with the pipeline context and posts it.
func (t *Telegram) Send(ctx context.Context, text string, severity Severity) Result {
	result := Result{Severity: severity}
	if !t.Configured() {
		result.Error = ErrNotConfigured.Error()
		return result
	}

	if err := t.post(ctx, Format(text, severity, t.opts.Context, t.opts.Now())); err != nil {
		t.logger.Warn("Failed to send notification: %v", err)
		result.Error = fmt.Sprintf("failed to send notification: %v", err)
		return result
	}

	t.logger.Debug("Sent %s notification to chat %s", severity, t.opts.ChatID)
	result.Sent = true
	return result
}

func (t *Telegram) post(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.opts.ChatID,
		Text:                  message,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.opts.BaseURL, "/"), t.opts.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token.
		return errors.New(strings.ReplaceAll(err.Error(), t.opts.Token, "***"))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// Format renders a notification in Telegram Markdown.
func Format(text string, severity Severity, pc PipelineContext, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *AI Observability Alert*\n\n", severity.Emoji())

	fmt.Fprintf(&b, "*Pipeline:* `%s`\n", pc.PipelineID)
	fmt.Fprintf(&b, "*Environment:* `%s`\n", pc.Environment)
	fmt.Fprintf(&b, "*Namespace:* `%s`\n", pc.Namespace)
	fmt.Fprintf(&b, "*Commit:* `%s`\n", shortCommit(pc.Commit))
	fmt.Fprintf(&b, "*Time:* %s\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "*Alert:*\n%s\n\n", text)

	b.WriteString("*Quick Actions:*\n")
	if endpoints.Usable(pc.DashboardURL) {
		fmt.Fprintf(&b, "• [View Dashboard](%s)\n", pc.DashboardURL)
	}
	if endpoints.Usable(pc.MetricsURL) {
		fmt.Fprintf(&b, "• [Check Metrics](%s)\n", pc.MetricsURL)
	}
	fmt.Fprintf(&b, "• Run: `kubectl get pods -n %s`", pc.Namespace)
	return b.String()
}

func shortCommit(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Send(ctx context.Context, text string, severity Severity) Result {
	return Result{Severity: severity, Error: ErrNotConfigured.Error()}
}
