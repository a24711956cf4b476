package services

import (
	"context"
	"fmt"
	"strings"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioCallAPI is the slice of the Twilio REST client the voice
// sender needs.
type twilioCallAPI interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// VoiceService places automated voice calls through Twilio, reading the
// notification aloud with text-to-speech. Reserved for the highest
// priorities by channel selection.
type VoiceService struct {
	client             twilioCallAPI
	fromNumber         string
	defaultCountryCode string
}

func NewVoiceService(client twilioCallAPI, fromNumber, defaultCountryCode string) *VoiceService {
	if defaultCountryCode == "" {
		defaultCountryCode = "1"
	}
	return &VoiceService{
		client:             client,
		fromNumber:         fromNumber,
		defaultCountryCode: defaultCountryCode,
	}
}

func (vs *VoiceService) ChannelType() models.ChannelType {
	return models.ChannelVoice
}

func (vs *VoiceService) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	if vs.client == nil || vs.fromNumber == "" {
		logrus.Warn("Twilio not configured, skipping voice call")
		return failure("voice channel not configured")
	}
	if recipient.Phone == "" {
		return failure("recipient has no phone number")
	}

	to := FormatPhoneNumber(recipient.Phone, vs.defaultCountryCode)

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(vs.fromNumber)
	params.SetTwiml(vs.buildTwiML(notification))

	resp, err := vs.client.CreateCall(params)
	if err != nil {
		logrus.Errorf("Failed to place voice call to %s: %v", to, err)
		return failure(err.Error())
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}

	logrus.Infof("Voice call placed successfully - SID: %s", sid)
	return success(sid)
}

var twimlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// buildTwiML produces the call script. The message is repeated once so a
// clinician reaching the phone mid-sentence still hears the full text.
func (vs *VoiceService) buildTwiML(notification *models.Notification) string {
	text := twimlEscaper.Replace(fmt.Sprintf("%s. %s", notification.Subject, notification.Message))

	return fmt.Sprintf(
		`<Response><Say voice="alice">This is an automated notification from MediConnect. %s</Say><Pause length="1"/><Say voice="alice">Repeating. %s</Say></Response>`,
		text, text,
	)
}
