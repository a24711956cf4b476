package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreference holds per-user delivery preferences.
type NotificationPreference struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	// Channel preferences
	EmailEnabled bool `json:"emailEnabled" bson:"emailEnabled"`
	SMSEnabled   bool `json:"smsEnabled" bson:"smsEnabled"`
	PushEnabled  bool `json:"pushEnabled" bson:"pushEnabled"`
	VoiceEnabled bool `json:"voiceEnabled" bson:"voiceEnabled"`
	InAppEnabled bool `json:"inAppEnabled" bson:"inAppEnabled"`

	// Notification category preferences
	EmergencyAlerts       bool `json:"emergencyAlerts" bson:"emergencyAlerts"`
	DispatchNotifications bool `json:"dispatchNotifications" bson:"dispatchNotifications"`
	StatusUpdates         bool `json:"statusUpdates" bson:"statusUpdates"`
	SystemAlerts          bool `json:"systemAlerts" bson:"systemAlerts"`

	// Timing preferences; quiet hours are HH:MM and may wrap midnight
	QuietHoursStart      string `json:"quietHoursStart,omitempty" bson:"quietHoursStart,omitempty"`
	QuietHoursEnd        string `json:"quietHoursEnd,omitempty" bson:"quietHoursEnd,omitempty"`
	WeekendNotifications bool   `json:"weekendNotifications" bson:"weekendNotifications"`

	// Contact overrides
	PreferredEmail string `json:"preferredEmail,omitempty" bson:"preferredEmail,omitempty"`
	PreferredPhone string `json:"preferredPhone,omitempty" bson:"preferredPhone,omitempty"`

	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DefaultPreferences returns the opt-out defaults applied to users without a
// stored preference record: everything on, no quiet hours.
func DefaultPreferences() *NotificationPreference {
	return &NotificationPreference{
		EmailEnabled:          true,
		SMSEnabled:            true,
		PushEnabled:           true,
		VoiceEnabled:          true,
		InAppEnabled:          true,
		EmergencyAlerts:       true,
		DispatchNotifications: true,
		StatusUpdates:         true,
		SystemAlerts:          true,
		WeekendNotifications:  true,
	}
}

// IsInQuietHours reports whether t falls in the configured quiet-hours window,
// handling windows that span midnight.
func (p *NotificationPreference) IsInQuietHours(t time.Time) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}

	start, err := time.Parse("15:04", p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", p.QuietHoursEnd)
	if err != nil {
		return false
	}

	current := t.Hour()*60 + t.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin <= endMin {
		return current >= startMin && current <= endMin
	}
	// Overnight window
	return current >= startMin || current <= endMin
}

// ChannelEnabled reports the per-channel boolean for the given channel type.
// Webhook channels are system-level and not subject to user opt-out.
func (p *NotificationPreference) ChannelEnabled(channel ChannelType) bool {
	switch channel {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelVoice:
		return p.VoiceEnabled
	case ChannelInApp:
		return p.InAppEnabled
	default:
		return true
	}
}

// CategoryEnabled reports the per-category boolean for a notification type.
// Unknown types are allowed.
func (p *NotificationPreference) CategoryEnabled(notificationType string) bool {
	switch notificationType {
	case NotificationEmergencyAlert:
		return p.EmergencyAlerts
	case NotificationDispatch:
		return p.DispatchNotifications
	case NotificationStatusUpdate, NotificationReferralAccepted, NotificationReferralRejected:
		return p.StatusUpdates
	case NotificationSystemAlert, NotificationCapacityAlert:
		return p.SystemAlerts
	default:
		return true
	}
}

type UpdatePreferencesRequest struct {
	EmailEnabled          *bool  `json:"emailEnabled,omitempty"`
	SMSEnabled            *bool  `json:"smsEnabled,omitempty"`
	PushEnabled           *bool  `json:"pushEnabled,omitempty"`
	VoiceEnabled          *bool  `json:"voiceEnabled,omitempty"`
	InAppEnabled          *bool  `json:"inAppEnabled,omitempty"`
	EmergencyAlerts       *bool  `json:"emergencyAlerts,omitempty"`
	DispatchNotifications *bool  `json:"dispatchNotifications,omitempty"`
	StatusUpdates         *bool  `json:"statusUpdates,omitempty"`
	SystemAlerts          *bool  `json:"systemAlerts,omitempty"`
	QuietHoursStart       string `json:"quietHoursStart,omitempty" validate:"omitempty,len=5"`
	QuietHoursEnd         string `json:"quietHoursEnd,omitempty" validate:"omitempty,len=5"`
	WeekendNotifications  *bool  `json:"weekendNotifications,omitempty"`
	PreferredEmail        string `json:"preferredEmail,omitempty" validate:"omitempty,email"`
	PreferredPhone        string `json:"preferredPhone,omitempty"`
}
