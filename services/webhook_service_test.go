package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type staticWebhookConfig struct {
	channel *models.NotificationChannel
}

func (s staticWebhookConfig) GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error) {
	return s.channel, nil
}

func TestWebhookSendPostsWirePayload(t *testing.T) {
	t.Parallel()

	var gotPayload webhookPayload
	var gotAuth, gotAgent, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ws := NewWebhookService(staticWebhookConfig{channel: &models.NotificationChannel{
		ChannelType: models.ChannelWebhook,
		APIEndpoint: server.URL,
		APIKey:      "secret-key",
	}})

	notification := &models.Notification{
		ID:       primitive.NewObjectID(),
		Subject:  "Bed capacity update",
		Message:  "ICU at 95% capacity",
		Type:     models.NotificationCapacityAlert,
		Priority: models.PriorityHigh,
		ContextData: map[string]interface{}{
			"hospitalId": "hosp-9",
		},
	}
	recipient := &models.Recipient{
		UserID: "user-1",
		Email:  "doctor@hospital.example",
		Phone:  "+15550100",
	}

	result := ws.Send(context.Background(), recipient, notification)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "MediConnect-Notifications/1.0", gotAgent)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, notification.ID.Hex(), gotPayload.NotificationID)
	assert.Equal(t, "Bed capacity update", gotPayload.Subject)
	assert.Equal(t, "ICU at 95% capacity", gotPayload.Message)
	assert.Equal(t, "high", gotPayload.Priority)
	assert.Equal(t, models.NotificationCapacityAlert, gotPayload.NotificationType)
	assert.Equal(t, "user-1", gotPayload.Recipient.UserID)
	assert.Equal(t, "doctor@hospital.example", gotPayload.Recipient.Email)
	assert.Equal(t, "+15550100", gotPayload.Recipient.Phone)
	assert.Equal(t, "hosp-9", gotPayload.Context["hospitalId"])

	ts, err := time.Parse(time.RFC3339, gotPayload.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestWebhookSendNon200IsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ws := NewWebhookService(staticWebhookConfig{channel: &models.NotificationChannel{
		ChannelType: models.ChannelWebhook,
		APIEndpoint: server.URL,
	}})

	result := ws.Send(context.Background(), &models.Recipient{UserID: "user-1"}, &models.Notification{ID: primitive.NewObjectID()})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "202")
}

func TestWebhookSendUnconfigured(t *testing.T) {
	t.Parallel()

	ws := NewWebhookService(staticWebhookConfig{})
	result := ws.Send(context.Background(), &models.Recipient{UserID: "user-1"}, &models.Notification{})
	assert.False(t, result.Success)
	assert.Equal(t, "webhook channel not configured", result.Error)
}
