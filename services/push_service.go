package services

import (
	"context"

	"mediconnect/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
)

// fcmClient is the slice of the Firebase messaging client the push
// sender needs.
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushService delivers notifications through Firebase Cloud Messaging.
// Every registered device token is tried; the attempt counts as
// delivered when at least one token accepts.
type PushService struct {
	client fcmClient
}

func NewPushService(client fcmClient) *PushService {
	return &PushService{client: client}
}

func (ps *PushService) ChannelType() models.ChannelType {
	return models.ChannelPush
}

func (ps *PushService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	if ps.client == nil {
		logrus.Warn("FCM not configured, skipping push send")
		return failure("push channel not configured")
	}
	if len(recipient.PushTokens) == 0 {
		return failure("recipient has no registered devices")
	}

	data := map[string]string{
		"notificationId": notification.ID.Hex(),
		"type":           notification.Type,
		"priority":       string(notification.Priority),
	}

	sound := "default"
	if notification.Priority == models.PriorityCritical || notification.Priority == models.PriorityEmergency {
		sound = "emergency"
	}

	var firstID string
	var lastErr error
	delivered := 0

	for _, token := range recipient.PushTokens {
		message := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: notification.Subject,
				Body:  notification.Message,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: sound,
					Icon:  "ic_notification",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{
							Title: notification.Subject,
							Body:  notification.Message,
						},
						Sound: sound,
					},
				},
			},
		}

		messageID, err := ps.client.Send(ctx, message)
		if err != nil {
			lastErr = err
			logrus.Warnf("Push send failed for token of user %s: %v", recipient.UserID, err)
			continue
		}

		delivered++
		if firstID == "" {
			firstID = messageID
		}
	}

	if delivered == 0 {
		if lastErr != nil {
			return failure(lastErr.Error())
		}
		return failure("no device accepted the push")
	}

	logrus.Infof("Push delivered to %d/%d devices for user %s", delivered, len(recipient.PushTokens), recipient.UserID)
	return success(firstID)
}
