package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers run outcome notifications. Delivery is best-effort:
// notification failures never change the outcome of the run they describe.
type Notifier interface {
	NotifySuccess(ctx context.Context, result *RunResult) error
	NotifyFailure(ctx context.Context, backupID string, runErr error) error
}

// NoopNotifier is used when no webhook is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifySuccess(ctx context.Context, result *RunResult) error { return nil }
func (NoopNotifier) NotifyFailure(ctx context.Context, backupID string, runErr error) error {
	return nil
}

// webhookMessage is the Slack-compatible payload posted to the webhook.
type webhookMessage struct {
	Text        string              `json:"text"`
	Attachments []webhookAttachment `json:"attachments,omitempty"`
}

type webhookAttachment struct {
	Color     string         `json:"color"`
	Title     string         `json:"title"`
	Fields    []webhookField `json:"fields,omitempty"`
	Timestamp int64          `json:"ts"`
}

type webhookField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// WebhookNotifier posts run outcomes to an HTTP webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NotifySuccess posts a completed-run notification.
func (wn *WebhookNotifier) NotifySuccess(ctx context.Context, result *RunResult) error {
	fields := []webhookField{
		{Title: "Backup ID", Value: result.BackupID, Short: true},
		{Title: "Tables", Value: fmt.Sprintf("%d", len(result.Tables)), Short: true},
		{Title: "Records", Value: fmt.Sprintf("%d", result.TotalRecords), Short: true},
		{Title: "Size", Value: fmt.Sprintf("%.2f MB", result.FileSizeMB), Short: true},
		{Title: "Duration", Value: fmt.Sprintf("%.1fs", result.DurationSeconds), Short: true},
	}
	if len(result.SkippedTables) > 0 {
		fields = append(fields, webhookField{
			Title: "Skipped tables",
			Value: fmt.Sprintf("%d", len(result.SkippedTables)),
			Short: true,
		})
	}

	msg := webhookMessage{
		Text: "Backup completed",
		Attachments: []webhookAttachment{{
			Color:     "good",
			Title:     fmt.Sprintf("Backup %s completed", result.BackupID),
			Fields:    fields,
			Timestamp: time.Now().Unix(),
		}},
	}
	return wn.post(ctx, msg)
}

// NotifyFailure posts a failed-run notification.
func (wn *WebhookNotifier) NotifyFailure(ctx context.Context, backupID string, runErr error) error {
	errText := "unknown error"
	if runErr != nil {
		errText = runErr.Error()
	}

	msg := webhookMessage{
		Text: "Backup failed",
		Attachments: []webhookAttachment{{
			Color: "danger",
			Title: fmt.Sprintf("Backup %s failed", backupID),
			Fields: []webhookField{
				{Title: "Backup ID", Value: backupID, Short: true},
				{Title: "Error", Value: errText, Short: false},
			},
			Timestamp: time.Now().Unix(),
		}},
	}
	return wn.post(ctx, msg)
}

func (wn *WebhookNotifier) post(ctx context.Context, msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return NewNotificationError("failed to encode notification payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.url, bytes.NewReader(body))
	if err != nil {
		return NewNotificationError("failed to build notification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wn.client.Do(req)
	if err != nil {
		return NewNotificationError("failed to deliver notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewNotificationError(fmt.Sprintf("webhook responded with status %d", resp.StatusCode), nil)
	}
	return nil
}
