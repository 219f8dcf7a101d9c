package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/config"
	apperrors "spendlens/internal/errors"
	"spendlens/ports"
)

func failedRun() ports.RunNotification {
	return ports.RunNotification{
		RunID:        "run-123",
		Success:      false,
		Records:      42,
		QualityScore: 60.0,
		Error:        "consolidate: no data to consolidate",
	}
}

func TestWebhookPostsFailurePayload(t *testing.T) {
	var received ports.RunNotification
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &received))
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnFailure: true})
	require.NoError(t, w.NotifyRun(failedRun()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "run-123", received.RunID)
	assert.False(t, received.Success)
	assert.Equal(t, 42, received.Records)
	assert.Contains(t, received.BodyHTML, "Data Pipeline Run Failed")
	assert.Contains(t, received.BodyHTML, "consolidate: no data to consolidate")
}

func TestWebhookMutesSuccessByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnFailure: true})
	require.NoError(t, w.NotifyRun(ports.RunNotification{RunID: "run-ok", Success: true}))
	assert.Equal(t, int32(0), calls.Load())
}

func TestWebhookSendsSuccessWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnSuccess: true})
	require.NoError(t, w.NotifyRun(ports.RunNotification{RunID: "run-ok", Success: true, QualityScore: 100}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookMutesFailureWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnSuccess: true})
	require.NoError(t, w.NotifyRun(failedRun()))
	assert.Equal(t, int32(0), calls.Load())
}

func TestWebhookWithoutURLIsNoop(t *testing.T) {
	w := NewWebhook(config.NotificationsConfig{NotifyOnFailure: true})
	require.NoError(t, w.NotifyRun(failedRun()))
}

func TestWebhookSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnFailure: true})
	err := w.NotifyRun(failedRun())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeExternalService, appErr.Code)
}

func TestWebhookIncludesInsights(t *testing.T) {
	var received ports.RunNotification
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &received)
	}))
	defer srv.Close()

	w := NewWebhook(config.NotificationsConfig{WebhookURL: srv.URL, NotifyOnSuccess: true}).
		WithInsights(InsightsFunc(func() []string {
			return []string{"OPPORTUNITY: Vendor consolidation could save $82,500 annually"}
		}))

	require.NoError(t, w.NotifyRun(ports.RunNotification{RunID: "run-1", Success: true}))
	require.Len(t, received.TopInsights, 1)
	assert.Contains(t, received.BodyHTML, "Top Insights")
}
