package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel types
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSMS     ChannelType = "sms"
	ChannelPush    ChannelType = "push"
	ChannelVoice   ChannelType = "voice"
	ChannelWebhook ChannelType = "webhook"
	ChannelInApp   ChannelType = "in_app"
)

// Channel operational status
const (
	ChannelStatusActive      = "active"
	ChannelStatusInactive    = "inactive"
	ChannelStatusMaintenance = "maintenance"
	ChannelStatusError       = "error"
)

// Notification priorities
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityUrgent    Priority = "urgent"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// Notification statuses
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Notification type constants
const (
	NotificationEmergencyAlert   = "emergency_alert"
	NotificationReferralRequest  = "referral_request"
	NotificationReferralAccepted = "referral_accepted"
	NotificationReferralRejected = "referral_rejected"
	NotificationDispatch         = "dispatch"
	NotificationPatientArrival   = "patient_arrival"
	NotificationHospitalStatus   = "hospital_status"
	NotificationCapacityAlert    = "capacity_alert"
	NotificationStatusUpdate     = "status_update"
	NotificationSystemAlert      = "system_alert"
	NotificationShiftReminder    = "shift_reminder"
)

// Notification is a single delivery record for one recipient.
type Notification struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Recipient
	RecipientUserID primitive.ObjectID `json:"recipientUserId,omitempty" bson:"recipientUserId,omitempty"`
	RecipientEmail  string             `json:"recipientEmail,omitempty" bson:"recipientEmail,omitempty"`
	RecipientPhone  string             `json:"recipientPhone,omitempty" bson:"recipientPhone,omitempty"`

	// Content
	Subject     string                 `json:"subject" bson:"subject"`
	Message     string                 `json:"message" bson:"message"`
	HTMLContent string                 `json:"htmlContent,omitempty" bson:"htmlContent,omitempty"`
	ContextData map[string]interface{} `json:"contextData,omitempty" bson:"contextData,omitempty"`

	// Metadata
	Type     string   `json:"type" bson:"type"`
	Priority Priority `json:"priority" bson:"priority"`
	Status   string   `json:"status" bson:"status"`

	// Delivery
	ChannelOverride []ChannelType      `json:"channelOverride,omitempty" bson:"channelOverride,omitempty"`
	ChannelUsed     ChannelType        `json:"channelUsed,omitempty" bson:"channelUsed,omitempty"`
	TemplateID      primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`

	// Timing
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" bson:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`

	// Tracking
	ExternalID       string `json:"externalId,omitempty" bson:"externalId,omitempty"`
	DeliveryAttempts int    `json:"deliveryAttempts" bson:"deliveryAttempts"`
	ErrorMessage     string `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsExpired reports whether the notification passed its expiry before sending.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// IsDue reports whether a scheduled notification is ready to go out.
func (n *Notification) IsDue(now time.Time) bool {
	return n.ScheduledAt == nil || !n.ScheduledAt.After(now)
}

// NotificationChannel is a configured delivery mechanism. Channels are never
// deleted; deactivation is a status change.
type NotificationChannel struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	ChannelType ChannelType        `json:"channelType" bson:"channelType"`
	Status      string             `json:"status" bson:"status"`

	// Configuration
	APIEndpoint string `json:"apiEndpoint,omitempty" bson:"apiEndpoint,omitempty"`
	APIKey      string `json:"-" bson:"apiKey,omitempty"`

	// Rate limiting
	RateLimitPerHour int `json:"rateLimitPerHour" bson:"rateLimitPerHour"`

	// Selection
	PriorityOrder    int     `json:"priorityOrder" bson:"priorityOrder"`
	ReliabilityScore float64 `json:"reliabilityScore" bson:"reliabilityScore"`

	// Usage statistics, mutated only via atomic increments
	TotalSent      int64 `json:"totalSent" bson:"totalSent"`
	TotalDelivered int64 `json:"totalDelivered" bson:"totalDelivered"`
	TotalFailed    int64 `json:"totalFailed" bson:"totalFailed"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DeliveryRate returns the delivered/sent percentage, 0 when nothing was sent.
func (c *NotificationChannel) DeliveryRate() float64 {
	if c.TotalSent > 0 {
		return float64(c.TotalDelivered) / float64(c.TotalSent) * 100
	}
	return 0
}

// IsAvailable reports whether the channel may be selected for delivery.
func (c *NotificationChannel) IsAvailable() bool {
	return c.Status == ChannelStatusActive && c.ReliabilityScore > 0.5
}

// NotificationTemplate is a reusable subject/body/html template for bulk sends.
type NotificationTemplate struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	TemplateType string             `json:"templateType" bson:"templateType"`

	SubjectTemplate string `json:"subjectTemplate" bson:"subjectTemplate"`
	BodyTemplate    string `json:"bodyTemplate" bson:"bodyTemplate"`
	HTMLTemplate    string `json:"htmlTemplate,omitempty" bson:"htmlTemplate,omitempty"`

	Priority Priority `json:"priority" bson:"priority"`
	IsActive bool     `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DeliveryLog is one append-only row per (notification, recipient, channel, attempt).
type DeliveryLog struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	NotificationID primitive.ObjectID `json:"notificationId" bson:"notificationId"`
	RecipientID    string             `json:"recipientId" bson:"recipientId"`
	ChannelType    ChannelType        `json:"channelType" bson:"channelType"`
	Success        bool               `json:"success" bson:"success"`
	ProviderID     string             `json:"providerId,omitempty" bson:"providerId,omitempty"`
	ErrorMessage   string             `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	AttemptedAt    time.Time          `json:"attemptedAt" bson:"attemptedAt"`
}

// Recipient is the resolved delivery target handed to channel senders.
type Recipient struct {
	UserID     string        `json:"userId"`
	Name       string        `json:"name"`
	Email      string        `json:"email,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	PushTokens []string      `json:"pushTokens,omitempty"`
	Preferred  []ChannelType `json:"preferredChannels,omitempty"`
}

// Request DTOs

type CreateNotificationRequest struct {
	RecipientUserID string                 `json:"recipientUserId" validate:"required"`
	Subject         string                 `json:"subject" validate:"required,max=255"`
	Message         string                 `json:"message" validate:"required"`
	HTMLContent     string                 `json:"htmlContent,omitempty"`
	Type            string                 `json:"type" validate:"required"`
	Priority        Priority               `json:"priority" validate:"omitempty,oneof=low normal high urgent critical emergency"`
	Channels        []ChannelType          `json:"channels,omitempty"`
	ContextData     map[string]interface{} `json:"contextData,omitempty"`
	ScheduledAt     *time.Time             `json:"scheduledAt,omitempty"`
	ExpiresAt       *time.Time             `json:"expiresAt,omitempty"`
}

type BulkNotificationRequest struct {
	TemplateName string                 `json:"templateName" validate:"required"`
	UserIDs      []string               `json:"userIds" validate:"required,min=1"`
	ContextData  map[string]interface{} `json:"contextData,omitempty"`
	Priority     Priority               `json:"priority" validate:"omitempty,oneof=low normal high urgent critical emergency"`
}

type UpdateChannelStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive maintenance error"`
}
