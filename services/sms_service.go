package services

import (
	"context"
	"fmt"
	"strings"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioMessageAPI is the slice of the Twilio REST client the SMS
// sender needs. *api.ApiService satisfies it.
type twilioMessageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSService delivers notifications as SMS messages through Twilio.
type SMSService struct {
	client             twilioMessageAPI
	fromNumber         string
	defaultCountryCode string
}

func NewSMSService(client twilioMessageAPI, fromNumber, defaultCountryCode string) *SMSService {
	if defaultCountryCode == "" {
		defaultCountryCode = "1"
	}
	return &SMSService{
		client:             client,
		fromNumber:         fromNumber,
		defaultCountryCode: defaultCountryCode,
	}
}

func (ss *SMSService) ChannelType() models.ChannelType {
	return models.ChannelSMS
}

func (ss *SMSService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	if ss.client == nil || ss.fromNumber == "" {
		logrus.Warn("Twilio not configured, skipping SMS send")
		return failure("sms channel not configured")
	}
	if recipient.Phone == "" {
		return failure("recipient has no phone number")
	}

	to := FormatPhoneNumber(recipient.Phone, ss.defaultCountryCode)
	body := ss.formatSMSContent(notification)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ss.fromNumber)
	params.SetBody(body)

	resp, err := ss.client.CreateMessage(params)
	if err != nil {
		logrus.Errorf("Failed to send SMS to %s: %v", to, err)
		return failure(err.Error())
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}

	logrus.Infof("SMS sent successfully - SID: %s", sid)
	return success(sid)
}

// formatSMSContent flattens the notification into a single SMS segment.
func (ss *SMSService) formatSMSContent(notification *models.Notification) string {
	content := fmt.Sprintf("%s: %s", notification.Subject, notification.Message)

	switch notification.Priority {
	case models.PriorityUrgent, models.PriorityCritical, models.PriorityEmergency:
		content = "URGENT - " + content
	}

	// Truncate if too long (SMS limit is 160 characters for single
	// message). Counted in runes so a multi-byte character is never
	// split.
	if runes := []rune(content); len(runes) > 150 {
		content = string(runes[:147]) + "..."
	}

	content += " - MediConnect"

	return content
}

// FormatPhoneNumber normalizes a phone number to E.164. Numbers without a
// leading + get the default country code.
func FormatPhoneNumber(phoneNumber, countryCode string) string {
	cleaned := ""
	for _, char := range phoneNumber {
		if char >= '0' && char <= '9' {
			cleaned += string(char)
		}
	}

	if strings.HasPrefix(phoneNumber, "+") {
		return "+" + cleaned
	}

	if countryCode == "" {
		countryCode = "1"
	}
	return "+" + countryCode + cleaned
}
