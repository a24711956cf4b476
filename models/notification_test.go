package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sent      int64
		delivered int64
		want      float64
	}{
		{name: "nothing sent", sent: 0, delivered: 0, want: 0},
		{name: "all delivered", sent: 10, delivered: 10, want: 100},
		{name: "partial", sent: 200, delivered: 150, want: 75},
		{name: "none delivered", sent: 5, delivered: 0, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			channel := &NotificationChannel{
				TotalSent:      tt.sent,
				TotalDelivered: tt.delivered,
			}
			assert.InDelta(t, tt.want, channel.DeliveryRate(), 0.0001)
		})
	}
}

func TestChannelIsAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      string
		reliability float64
		want        bool
	}{
		{name: "active and reliable", status: ChannelStatusActive, reliability: 0.95, want: true},
		{name: "active but unreliable", status: ChannelStatusActive, reliability: 0.5, want: false},
		{name: "maintenance", status: ChannelStatusMaintenance, reliability: 0.95, want: false},
		{name: "inactive", status: ChannelStatusInactive, reliability: 0.95, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			channel := &NotificationChannel{Status: tt.status, ReliabilityScore: tt.reliability}
			assert.Equal(t, tt.want, channel.IsAvailable())
		})
	}
}
