package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilioMessages struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilioMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestFormatPhoneNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		countryCode string
		want        string
	}{
		{"already e164", "+15550100", "1", "+15550100"},
		{"strips formatting", "(555) 010-0123", "1", "+15550100123"},
		{"applies country code", "5550100123", "1", "+15550100123"},
		{"non-default country code", "07911123456", "44", "+4407911123456"},
		{"empty country code defaults", "5550100", "", "+15550100"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatPhoneNumber(tt.input, tt.countryCode))
		})
	}
}

func TestSMSSend(t *testing.T) {
	t.Parallel()

	api := &fakeTwilioMessages{}
	ss := NewSMSService(api, "+15550000", "1")

	result := ss.Send(context.Background(), &models.Recipient{UserID: "u1", Phone: "(555) 010-0123"}, &models.Notification{
		Subject:  "Dispatch",
		Message:  "Unit 12 to Main St",
		Priority: models.PriorityUrgent,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "SM123", result.ProviderID)
	require.NotNil(t, api.params)
	assert.Equal(t, "+15550100123", *api.params.To)
	assert.Equal(t, "+15550000", *api.params.From)
	assert.Equal(t, "URGENT - Dispatch: Unit 12 to Main St - MediConnect", *api.params.Body)
}

func TestSMSSendProviderError(t *testing.T) {
	t.Parallel()

	ss := NewSMSService(&fakeTwilioMessages{err: errors.New("carrier rejected")}, "+15550000", "1")
	result := ss.Send(context.Background(), &models.Recipient{UserID: "u1", Phone: "+15550100"}, &models.Notification{Subject: "x", Message: "y"})

	assert.False(t, result.Success)
	assert.Equal(t, "carrier rejected", result.Error)
}

func TestSMSSendUnconfiguredOrUnreachable(t *testing.T) {
	t.Parallel()

	unconfigured := NewSMSService(nil, "", "1")
	result := unconfigured.Send(context.Background(), &models.Recipient{Phone: "+15550100"}, &models.Notification{})
	assert.Equal(t, "sms channel not configured", result.Error)

	configured := NewSMSService(&fakeTwilioMessages{}, "+15550000", "1")
	result = configured.Send(context.Background(), &models.Recipient{UserID: "u1"}, &models.Notification{})
	assert.Equal(t, "recipient has no phone number", result.Error)
}

func TestFormatSMSContent(t *testing.T) {
	t.Parallel()

	ss := NewSMSService(&fakeTwilioMessages{}, "+15550000", "1")

	normal := ss.formatSMSContent(&models.Notification{
		Subject:  "Shift reminder",
		Message:  "Night shift starts at 22:00",
		Priority: models.PriorityNormal,
	})
	assert.Equal(t, "Shift reminder: Night shift starts at 22:00 - MediConnect", normal)

	critical := ss.formatSMSContent(&models.Notification{
		Subject:  "Code blue",
		Message:  "Room 214",
		Priority: models.PriorityCritical,
	})
	assert.True(t, strings.HasPrefix(critical, "URGENT - "))

	long := ss.formatSMSContent(&models.Notification{
		Subject:  "Capacity alert",
		Message:  strings.Repeat("intensive care unit is approaching capacity ", 10),
		Priority: models.PriorityNormal,
	})
	assert.True(t, strings.HasSuffix(long, "... - MediConnect"))
	assert.LessOrEqual(t, len([]rune(long)), 164)

	// Truncation must not cut through a multi-byte character.
	multibyte := ss.formatSMSContent(&models.Notification{
		Subject:  "Übergabe",
		Message:  strings.Repeat("Überwachungsstation nähert sich der Kapazitätsgrenze ", 10),
		Priority: models.PriorityNormal,
	})
	assert.True(t, utf8.ValidString(multibyte))
	assert.True(t, strings.HasSuffix(multibyte, "... - MediConnect"))
	assert.LessOrEqual(t, len([]rune(multibyte)), 164)
}
