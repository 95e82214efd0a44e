package backup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifySuccess(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	result := &RunResult{
		BackupID:        "bk-x",
		Success:         true,
		Tables:          []string{"orders", "inventory"},
		TotalRecords:    120,
		FileSizeMB:      1.5,
		DurationSeconds: 4.2,
	}
	require.NoError(t, notifier.NotifySuccess(context.Background(), result))

	assert.Equal(t, "Backup completed", received.Text)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "good", received.Attachments[0].Color)
}

func TestWebhookNotifyFailure(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.NotifyFailure(context.Background(), "bk-x", NewUploadError("bucket unavailable", nil))
	require.NoError(t, err)

	assert.Equal(t, "Backup failed", received.Text)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "danger", received.Attachments[0].Color)
}

func TestWebhookNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.NotifySuccess(context.Background(), &RunResult{BackupID: "bk-x"})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeNotification))
}

func TestWebhookUnreachable(t *testing.T) {
	notifier := NewWebhookNotifier("http://127.0.0.1:1/hook")
	err := notifier.NotifyFailure(context.Background(), "bk-x", nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeNotification))
}

func TestNotificationFailureDoesNotFailBackup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := serviceConfig()
	rows := newFakeRows()
	seedTables(rows)
	service := NewService(cfg, rows, newFakeCatalog(), newMemBlobStore(), NewWebhookNotifier(server.URL), quietLogger(t))

	result, err := service.CreateBackup(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}
