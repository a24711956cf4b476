package services

import (
	"context"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
)

// channelLookup resolves configured channel records.
// *repositories.ChannelRepository satisfies it.
type channelLookup interface {
	GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error)
}

// priorityChannels is the fallback order per priority. Higher priorities
// reach for more intrusive channels.
var priorityChannels = map[models.Priority][]models.ChannelType{
	models.PriorityEmergency: {models.ChannelPush, models.ChannelSMS, models.ChannelVoice, models.ChannelEmail},
	models.PriorityCritical:  {models.ChannelPush, models.ChannelSMS, models.ChannelVoice, models.ChannelEmail},
	models.PriorityUrgent:    {models.ChannelPush, models.ChannelSMS, models.ChannelEmail},
	models.PriorityHigh:      {models.ChannelPush, models.ChannelEmail, models.ChannelSMS},
	models.PriorityNormal:    {models.ChannelEmail, models.ChannelPush},
	models.PriorityLow:       {models.ChannelEmail},
}

// ChannelSelector computes the ordered candidate channels for one
// notification. The orchestrator walks the list until one delivers.
type ChannelSelector struct {
	channels channelLookup
	registry SenderRegistry
}

func NewChannelSelector(channels channelLookup, registry SenderRegistry) *ChannelSelector {
	return &ChannelSelector{
		channels: channels,
		registry: registry,
	}
}

// SelectChannels returns the fallback chain for the notification. An
// explicit override replaces the priority table but still passes the
// availability filters.
func (cs *ChannelSelector) SelectChannels(ctx context.Context, notification *models.Notification, recipient *models.Recipient) []models.ChannelType {
	candidates := notification.ChannelOverride
	if len(candidates) == 0 {
		candidates = priorityChannels[notification.Priority]
	}
	if len(candidates) == 0 {
		candidates = priorityChannels[models.PriorityNormal]
	}

	selected := make([]models.ChannelType, 0, len(candidates))
	for _, channel := range candidates {
		if _, ok := cs.registry[channel]; !ok {
			logrus.Debugf("No sender registered for channel %s, skipping", channel)
			continue
		}

		if !cs.recipientReachable(channel, recipient) {
			continue
		}

		if !cs.channelAvailable(ctx, channel) {
			logrus.Debugf("Channel %s unavailable, skipping", channel)
			continue
		}

		selected = append(selected, channel)
	}

	return selected
}

// AllChannelsFor returns every registered channel the recipient can be
// reached on, in intrusiveness order. Emergency fan-out uses this
// instead of the priority table.
func (cs *ChannelSelector) AllChannelsFor(recipient *models.Recipient) []models.ChannelType {
	all := []models.ChannelType{
		models.ChannelPush,
		models.ChannelSMS,
		models.ChannelVoice,
		models.ChannelEmail,
		models.ChannelInApp,
	}

	selected := make([]models.ChannelType, 0, len(all))
	for _, channel := range all {
		if _, ok := cs.registry[channel]; !ok {
			continue
		}
		if !cs.recipientReachable(channel, recipient) {
			continue
		}
		selected = append(selected, channel)
	}
	return selected
}

// recipientReachable filters out channels the recipient has no address
// for. In-app and webhook need no contact details.
func (cs *ChannelSelector) recipientReachable(channel models.ChannelType, recipient *models.Recipient) bool {
	switch channel {
	case models.ChannelEmail:
		return recipient.Email != ""
	case models.ChannelSMS, models.ChannelVoice:
		return recipient.Phone != ""
	case models.ChannelPush:
		return len(recipient.PushTokens) > 0
	default:
		return true
	}
}

// channelAvailable consults the channel record. A missing record keeps
// the channel in play; sender configuration decides at send time.
// Lookup errors fail open.
func (cs *ChannelSelector) channelAvailable(ctx context.Context, channel models.ChannelType) bool {
	record, err := cs.channels.GetByType(ctx, channel)
	if err != nil {
		logrus.Warnf("Failed to load channel record for %s, assuming available: %v", channel, err)
		return true
	}
	if record == nil {
		return true
	}
	return record.IsAvailable()
}
