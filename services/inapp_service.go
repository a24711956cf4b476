package services

import (
	"context"
	"time"

	"mediconnect/models"
)

// notificationPusher is what the in-app sender needs from the websocket
// hub.
type notificationPusher interface {
	SendNotificationToUser(userID string, notification models.WSNotification) bool
	IsUserOnline(userID string) bool
}

// InAppService delivers notifications over the recipient's live
// websocket connections. An offline user is a failed attempt; the
// fallback chain moves on.
type InAppService struct {
	hub notificationPusher
}

func NewInAppService(hub notificationPusher) *InAppService {
	return &InAppService{hub: hub}
}

func (is *InAppService) ChannelType() models.ChannelType {
	return models.ChannelInApp
}

func (is *InAppService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	if is.hub == nil {
		return failure("in-app channel not configured")
	}

	payload := models.WSNotification{
		NotificationID: notification.ID.Hex(),
		Type:           notification.Type,
		Priority:       notification.Priority,
		Title:          notification.Subject,
		Body:           notification.Message,
		Data:           notification.ContextData,
		Timestamp:      time.Now(),
	}

	if !is.hub.SendNotificationToUser(recipient.UserID, payload) {
		return failure("recipient has no active connection")
	}

	return success("")
}
