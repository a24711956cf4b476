package services

import (
	"context"
	"testing"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
)

func fullRegistry() SenderRegistry {
	return NewSenderRegistry(
		&fakeSender{channel: models.ChannelEmail},
		&fakeSender{channel: models.ChannelSMS},
		&fakeSender{channel: models.ChannelVoice},
		&fakeSender{channel: models.ChannelPush},
		&fakeSender{channel: models.ChannelInApp},
		&fakeSender{channel: models.ChannelWebhook},
	)
}

func reachableEverywhere() *models.Recipient {
	return &models.Recipient{
		UserID:     "user-1",
		Email:      "doctor@hospital.example",
		Phone:      "+15550100",
		PushTokens: []string{"token-1"},
	}
}

func TestSelectChannelsPriorityTable(t *testing.T) {
	t.Parallel()

	selector := NewChannelSelector(stubChannelLookup{}, fullRegistry())

	tests := []struct {
		priority models.Priority
		want     []models.ChannelType
	}{
		{models.PriorityEmergency, []models.ChannelType{models.ChannelPush, models.ChannelSMS, models.ChannelVoice, models.ChannelEmail}},
		{models.PriorityCritical, []models.ChannelType{models.ChannelPush, models.ChannelSMS, models.ChannelVoice, models.ChannelEmail}},
		{models.PriorityUrgent, []models.ChannelType{models.ChannelPush, models.ChannelSMS, models.ChannelEmail}},
		{models.PriorityHigh, []models.ChannelType{models.ChannelPush, models.ChannelEmail, models.ChannelSMS}},
		{models.PriorityNormal, []models.ChannelType{models.ChannelEmail, models.ChannelPush}},
		{models.PriorityLow, []models.ChannelType{models.ChannelEmail}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.priority), func(t *testing.T) {
			t.Parallel()

			notification := &models.Notification{Priority: tt.priority}
			got := selector.SelectChannels(context.Background(), notification, reachableEverywhere())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectChannelsOverrideReplacesTable(t *testing.T) {
	t.Parallel()

	selector := NewChannelSelector(stubChannelLookup{}, fullRegistry())

	notification := &models.Notification{
		Priority:        models.PriorityLow,
		ChannelOverride: []models.ChannelType{models.ChannelSMS, models.ChannelInApp},
	}

	got := selector.SelectChannels(context.Background(), notification, reachableEverywhere())
	assert.Equal(t, []models.ChannelType{models.ChannelSMS, models.ChannelInApp}, got)
}

func TestSelectChannelsFiltersUnreachable(t *testing.T) {
	t.Parallel()

	selector := NewChannelSelector(stubChannelLookup{}, fullRegistry())

	// No phone and no devices: only email survives from the critical chain.
	recipient := &models.Recipient{UserID: "user-1", Email: "doctor@hospital.example"}
	notification := &models.Notification{Priority: models.PriorityCritical}

	got := selector.SelectChannels(context.Background(), notification, recipient)
	assert.Equal(t, []models.ChannelType{models.ChannelEmail}, got)
}

func TestSelectChannelsSkipsUnregisteredSenders(t *testing.T) {
	t.Parallel()

	registry := NewSenderRegistry(
		&fakeSender{channel: models.ChannelEmail},
	)
	selector := NewChannelSelector(stubChannelLookup{}, registry)

	notification := &models.Notification{Priority: models.PriorityUrgent}
	got := selector.SelectChannels(context.Background(), notification, reachableEverywhere())
	assert.Equal(t, []models.ChannelType{models.ChannelEmail}, got)
}

func TestSelectChannelsHonorsChannelStatus(t *testing.T) {
	t.Parallel()

	lookup := &fakeChannelStats{records: map[models.ChannelType]*models.NotificationChannel{
		models.ChannelPush: {ChannelType: models.ChannelPush, Status: models.ChannelStatusMaintenance},
	}}
	selector := NewChannelSelector(lookup, fullRegistry())

	notification := &models.Notification{Priority: models.PriorityUrgent}
	got := selector.SelectChannels(context.Background(), notification, reachableEverywhere())

	assert.NotContains(t, got, models.ChannelPush)
	assert.Contains(t, got, models.ChannelSMS)
}

func TestAllChannelsForEmergencyFanOut(t *testing.T) {
	t.Parallel()

	selector := NewChannelSelector(stubChannelLookup{}, fullRegistry())

	got := selector.AllChannelsFor(reachableEverywhere())
	assert.Equal(t, []models.ChannelType{
		models.ChannelPush,
		models.ChannelSMS,
		models.ChannelVoice,
		models.ChannelEmail,
		models.ChannelInApp,
	}, got)

	// Recipient reachable only in-app still gets the alert there.
	got = selector.AllChannelsFor(&models.Recipient{UserID: "user-2"})
	assert.Equal(t, []models.ChannelType{models.ChannelInApp}, got)
}
