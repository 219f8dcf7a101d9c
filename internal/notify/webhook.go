// Package notify delivers pipeline run outcomes to a configured
// webhook. Without a URL the notifier is a silent no-op, so callers
// can wire it unconditionally.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spendlens/internal"
	"spendlens/internal/config"
	apperrors "spendlens/internal/errors"
	"spendlens/internal/export"
	"spendlens/ports"
)

// webhookTimeout bounds one delivery attempt
const webhookTimeout = 10 * time.Second

// InsightSource supplies headline insight lines for the payload
type InsightSource interface {
	TopInsights() []string
}

// InsightsFunc adapts a function to the InsightSource interface
type InsightsFunc func() []string

// TopInsights calls f
func (f InsightsFunc) TopInsights() []string { return f() }

// Webhook posts run notifications as JSON to the configured URL
type Webhook struct {
	cfg      config.NotificationsConfig
	client   *http.Client
	insights InsightSource
	logger   *internal.Logger
}

// NewWebhook builds a notifier from the notification settings
func NewWebhook(cfg config.NotificationsConfig) *Webhook {
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: webhookTimeout},
		logger: internal.NewDefaultLogger().Component("Notify"),
	}
}

// WithInsights attaches a source of headline insights that are folded
// into the payload and its HTML body.
func (w *Webhook) WithInsights(src InsightSource) *Webhook {
	w.insights = src
	return w
}

// NotifyRun delivers the run outcome, honoring the on-success and
// on-failure switches.
func (w *Webhook) NotifyRun(summary ports.RunNotification) error {
	if w.cfg.WebhookURL == "" {
		return nil
	}
	if summary.Success && !w.cfg.NotifyOnSuccess {
		return nil
	}
	if !summary.Success && !w.cfg.NotifyOnFailure {
		return nil
	}

	if w.insights != nil && len(summary.TopInsights) == 0 {
		summary.TopInsights = w.insights.TopInsights()
	}
	if summary.BodyHTML == "" {
		summary.BodyHTML = export.BoardHTML(runMarkdown(summary))
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode run notification")
	}
	req, err := http.NewRequest(http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(raw))
	if err != nil {
		return apperrors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.ExternalServiceError("webhook", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.ExternalServiceError("webhook", fmt.Errorf("http %d", resp.StatusCode))
	}
	w.logger.Info("run %s notification delivered", summary.RunID)
	return nil
}

// runMarkdown renders the notification body shown in chat clients
func runMarkdown(n ports.RunNotification) string {
	var sb strings.Builder
	if n.Success {
		sb.WriteString("## Data Pipeline Run Succeeded\n\n")
	} else {
		sb.WriteString("## Data Pipeline Run Failed\n\n")
	}
	fmt.Fprintf(&sb, "- Run: %s\n", n.RunID)
	if n.DryRun {
		sb.WriteString("- Mode: dry run\n")
	}
	fmt.Fprintf(&sb, "- Records processed: %d\n", n.Records)
	fmt.Fprintf(&sb, "- Data quality score: %.1f\n", n.QualityScore)
	if n.Error != "" {
		fmt.Fprintf(&sb, "- Error: %s\n", n.Error)
	}
	if len(n.TopInsights) > 0 {
		sb.WriteString("\n### Top Insights\n\n")
		for _, line := range n.TopInsights {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	return sb.String()
}
