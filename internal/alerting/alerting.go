package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// MinFailuresBeforeAlert is the number of consecutive failed runs before
	// an alert goes out.
	MinFailuresBeforeAlert int
	// Timeout for HTTP requests
	Timeout time.Duration

	Email EmailConfig
}

// DefaultAlertConfig returns config from environment variables.
func DefaultAlertConfig() AlertConfig {
	cfg := AlertConfig{
		WebhookURL:             os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookType:            os.Getenv("ALERT_WEBHOOK_TYPE"),
		MinFailuresBeforeAlert: 1,
		Timeout:                10 * time.Second,
		Email: EmailConfig{
			APIKey:      os.Getenv("SENDGRID_API_KEY"),
			To:          os.Getenv("ALERT_EMAIL_TO"),
			FromAddress: os.Getenv("ALERT_EMAIL_FROM"),
			FromName:    "avfallsor-mqtt",
		},
	}

	if cfg.WebhookType == "" {
		// Auto-detect from URL
		if strings.Contains(cfg.WebhookURL, "slack.com") {
			cfg.WebhookType = "slack"
		} else if strings.Contains(cfg.WebhookURL, "discord.com") {
			cfg.WebhookType = "discord"
		} else {
			cfg.WebhookType = "generic"
		}
	}

	if v := os.Getenv("ALERT_MIN_FAILURES"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.MinFailuresBeforeAlert = n
		}
	}

	return cfg
}

// Alerter sends alerts to the configured webhook and email recipient.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
	email  EmailSender
}

// NewAlerter creates a new alerter instance. Email goes through SendGrid
// when an API key and recipient are configured.
func NewAlerter(cfg AlertConfig) *Alerter {
	a := &Alerter{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	if cfg.Email.Enabled() {
		a.email = NewSendgridSender(cfg.Email)
	}
	return a
}

// WithEmailSender replaces the email transport.
func (a *Alerter) WithEmailSender(s EmailSender) *Alerter {
	a.email = s
	return a
}

// Enabled reports whether any alert channel is configured.
func (a *Alerter) Enabled() bool {
	return a.cfg.WebhookURL != "" || a.email != nil
}

// RunAlert describes a failed publish run.
type RunAlert struct {
	JobName             string
	RunID               string
	Provider            string
	Address             string
	Error               string
	ConsecutiveFailures int
	Duration            time.Duration
	Timestamp           time.Time
}

// SendRunAlert notifies every configured channel about a failed run once the
// consecutive failure threshold is reached.
func (a *Alerter) SendRunAlert(ctx context.Context, alert RunAlert) error {
	if !a.Enabled() {
		log.Printf("alerting: alerts disabled, skipping")
		return nil
	}

	if alert.ConsecutiveFailures < a.cfg.MinFailuresBeforeAlert {
		log.Printf("alerting: %d consecutive failures below threshold (%d), skipping",
			alert.ConsecutiveFailures, a.cfg.MinFailuresBeforeAlert)
		return nil
	}

	var errs []error
	if a.cfg.WebhookURL != "" {
		if err := a.sendWebhook(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	if a.email != nil {
		subject := fmt.Sprintf("[%s] %s failed %d time(s)", alert.Provider, alert.JobName, alert.ConsecutiveFailures)
		if err := a.email.Send(ctx, subject, emailBody(alert)); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if len(errs) == 0 {
		log.Printf("alerting: sent alert for job %s run %s", alert.JobName, alert.RunID)
	}
	return errors.Join(errs...)
}

func (a *Alerter) sendWebhook(ctx context.Context, alert RunAlert) error {
	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = buildSlackPayload(alert)
	case "discord":
		payload, err = buildDiscordPayload(alert)
	default:
		payload, err = buildGenericPayload(alert)
	}

	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildSlackPayload(alert RunAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf(":wastebasket: Pickup calendar update failed: %s", alert.Provider),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Job:*\n%s", alert.JobName)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Failures in a row:*\n%d", alert.ConsecutiveFailures)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Error:*\n```%s```", alert.Error),
				},
			},
		},
	}

	return json.Marshal(payload)
}

func buildDiscordPayload(alert RunAlert) ([]byte, error) {
	color := 16776960 // Yellow
	if alert.ConsecutiveFailures > 1 {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Pickup calendar update failed: %s", alert.Provider),
				"description": alert.Error,
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Job", "value": alert.JobName, "inline": true},
					{"name": "Failures in a row", "value": fmt.Sprintf("%d", alert.ConsecutiveFailures), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func buildGenericPayload(alert RunAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":           "publish_failure",
		"job_name":             alert.JobName,
		"run_id":               alert.RunID,
		"provider":             alert.Provider,
		"error":                alert.Error,
		"consecutive_failures": alert.ConsecutiveFailures,
		"duration_ms":          alert.Duration.Milliseconds(),
		"timestamp":            alert.Timestamp.Format(time.RFC3339),
	}

	return json.Marshal(payload)
}

func emailBody(alert RunAlert) string {
	return fmt.Sprintf(`<p>The %s run for <b>%s</b> failed.</p>
<ul>
<li>Address: %s</li>
<li>Run: %s</li>
<li>Failures in a row: %d</li>
<li>Time: %s</li>
</ul>
<pre>%s</pre>`,
		alert.JobName, alert.Provider, alert.Address, alert.RunID,
		alert.ConsecutiveFailures, alert.Timestamp.Format(time.RFC3339), alert.Error)
}
