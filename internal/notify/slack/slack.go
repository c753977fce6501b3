// Package slack sends draft decision notifications to Slack via incoming
// webhooks. Operators are pinged when the two send verdicts disagree or when
// a draft goes out without review.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/scribe/internal/draft"
)

const (
	maxDraftLen = 3000
	httpTimeout = 10 * time.Second
)

// Notifier sends decision records to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts a decision record to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, rec *draft.Record) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(rec)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *draft.Record) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			draftBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *draft.Record) map[string]any {
	emoji := verdictEmoji(r)
	title := "Draft Auto-Send Approved"
	if r.VerdictsDisagree() {
		title = "Send Verdicts Disagree"
	} else if !r.AutoSend {
		title = "Draft Blocked"
	}
	text := fmt.Sprintf("%s %s: %s", emoji, title, r.Intent)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *draft.Record) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Intent:* %s", r.Intent),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f (%s)", r.Confidence, r.ConfidenceBucket),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Strategy:* %s", r.Strategy),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk:* %s", r.RiskCategory),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Auto-send:* %s", verdict(r.AutoSend)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Governance:* %s", verdict(r.GovernanceAllowed)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func draftBlock(r *draft.Record) map[string]any {
	text := truncate(r.DraftText, maxDraftLen)
	if text == "" {
		text = "_No draft text._"
	}

	detail := fmt.Sprintf("*Draft*\n\n%s", text)
	if r.VerdictsDisagree() {
		reasons := strings.Join(r.GovernanceReasons, "; ")
		if reasons == "" {
			reasons = r.AutoSendReason
		}
		detail = fmt.Sprintf("*Why flagged*\n%s\n\n%s", reasons, detail)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": detail,
		},
	}
}

func contextBlock(r *draft.Record) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("scribe • decision %s • %s", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func verdictEmoji(r *draft.Record) string {
	switch {
	case r.VerdictsDisagree():
		return "\U0001f7e1" // yellow circle
	case r.AutoSend:
		return "\U0001f7e2" // green circle
	default:
		return "\U0001f534" // red circle
	}
}

func verdict(allowed bool) string {
	if allowed {
		return "approved"
	}
	return "blocked"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
