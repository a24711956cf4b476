package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
)

// webhookConfigSource resolves the endpoint and credentials for the
// webhook channel. *repositories.ChannelRepository satisfies it.
type webhookConfigSource interface {
	GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error)
}

// WebhookService posts notifications to an external system's HTTP
// endpoint. Only a 200 response counts as delivered.
type WebhookService struct {
	channels   webhookConfigSource
	httpClient *http.Client
}

func NewWebhookService(channels webhookConfigSource) *WebhookService {
	return &WebhookService{
		channels: channels,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (ws *WebhookService) ChannelType() models.ChannelType {
	return models.ChannelWebhook
}

type webhookRecipient struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

type webhookPayload struct {
	NotificationID   string                 `json:"notification_id"`
	Subject          string                 `json:"subject"`
	Message          string                 `json:"message"`
	Priority         string                 `json:"priority"`
	NotificationType string                 `json:"notification_type"`
	Recipient        webhookRecipient       `json:"recipient"`
	Context          map[string]interface{} `json:"context,omitempty"`
	Timestamp        string                 `json:"timestamp"`
}

func (ws *WebhookService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	channel, err := ws.channels.GetByType(ctx, models.ChannelWebhook)
	if err != nil {
		logrus.Errorf("Failed to load webhook channel config: %v", err)
		return failure(err.Error())
	}
	if channel == nil || channel.APIEndpoint == "" {
		logrus.Warn("Webhook endpoint not configured, skipping webhook send")
		return failure("webhook channel not configured")
	}

	payload := webhookPayload{
		NotificationID:   notification.ID.Hex(),
		Subject:          notification.Subject,
		Message:          notification.Message,
		Priority:         string(notification.Priority),
		NotificationType: notification.Type,
		Recipient: webhookRecipient{
			UserID: recipient.UserID,
			Email:  recipient.Email,
			Phone:  recipient.Phone,
		},
		Context:   notification.ContextData,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return failure(err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MediConnect-Notifications/1.0")
	if channel.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+channel.APIKey)
	}

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		logrus.Errorf("Webhook post to %s failed: %v", channel.APIEndpoint, err)
		return failure(err.Error())
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		logrus.Errorf("Webhook endpoint %s returned %s", channel.APIEndpoint, resp.Status)
		return failure(fmt.Sprintf("webhook returned %s", resp.Status))
	}

	logrus.Infof("Webhook delivered for notification %s", notification.ID.Hex())
	return success("")
}
