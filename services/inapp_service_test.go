package services

import (
	"context"
	"testing"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePusher struct {
	online   map[string]bool
	received []models.WSNotification
}

func (f *fakePusher) SendNotificationToUser(userID string, notification models.WSNotification) bool {
	if !f.online[userID] {
		return false
	}
	f.received = append(f.received, notification)
	return true
}

func (f *fakePusher) IsUserOnline(userID string) bool {
	return f.online[userID]
}

func TestInAppSend(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{online: map[string]bool{"u1": true}}
	is := NewInAppService(pusher)

	notification := &models.Notification{
		ID:       primitive.NewObjectID(),
		Subject:  "Shift reminder",
		Message:  "Night shift starts at 22:00",
		Type:     models.NotificationShiftReminder,
		Priority: models.PriorityNormal,
	}

	result := is.Send(context.Background(), &models.Recipient{UserID: "u1"}, notification)
	require.True(t, result.Success)
	require.Len(t, pusher.received, 1)

	payload := pusher.received[0]
	assert.Equal(t, notification.ID.Hex(), payload.NotificationID)
	assert.Equal(t, "Shift reminder", payload.Title)
	assert.Equal(t, "Night shift starts at 22:00", payload.Body)
	assert.Equal(t, models.PriorityNormal, payload.Priority)
}

func TestInAppSendOfflineRecipient(t *testing.T) {
	t.Parallel()

	is := NewInAppService(&fakePusher{online: map[string]bool{}})
	result := is.Send(context.Background(), &models.Recipient{UserID: "u1"}, &models.Notification{})

	assert.False(t, result.Success)
	assert.Equal(t, "recipient has no active connection", result.Error)
}
