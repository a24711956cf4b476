package services

import (
	"context"

	"mediconnect/models"
)

// DeliveryResult is the outcome of one send attempt on one channel.
// Providers never bubble raw errors past this point; the orchestrator
// reads Success and moves down the fallback chain.
type DeliveryResult struct {
	Success    bool
	ProviderID string
	Error      string
}

// ChannelSender delivers a notification to one recipient over one channel.
// Implementations are registered once at construction and looked up by
// channel type; adding a channel means adding an implementation, not
// touching the orchestrator.
type ChannelSender interface {
	ChannelType() models.ChannelType
	Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult
}

// SenderRegistry maps channel types to their senders.
type SenderRegistry map[models.ChannelType]ChannelSender

func NewSenderRegistry(senders ...ChannelSender) SenderRegistry {
	registry := make(SenderRegistry, len(senders))
	for _, sender := range senders {
		registry[sender.ChannelType()] = sender
	}
	return registry
}

func failure(reason string) DeliveryResult {
	return DeliveryResult{Success: false, Error: reason}
}

func success(providerID string) DeliveryResult {
	return DeliveryResult{Success: true, ProviderID: providerID}
}
