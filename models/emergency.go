package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Emergency alert types
const (
	AlertMassCasualty      = "mass_casualty"
	AlertHospitalDiversion = "hospital_diversion"
	AlertWeatherEmergency  = "weather_emergency"
	AlertSystemOutage      = "system_outage"
	AlertSecurity          = "security_alert"
	AlertTrainingDrill     = "training_drill"
	AlertGeneral           = "general_alert"
)

// Emergency alert severities
const (
	SeverityInfo      = "info"
	SeverityWarning   = "warning"
	SeverityAlert     = "alert"
	SeverityEmergency = "emergency"
	SeverityCritical  = "critical"
)

// Emergency alert statuses
const (
	AlertStatusDraft     = "draft"
	AlertStatusActive    = "active"
	AlertStatusResolved  = "resolved"
	AlertStatusCancelled = "cancelled"
	AlertStatusExpired   = "expired"
)

// EmergencyAlert is a system-wide broadcast. Activation fans out to the
// computed target set across all available channels, bypassing preferences.
type EmergencyAlert struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	Title     string `json:"title" bson:"title"`
	Message   string `json:"message" bson:"message"`
	AlertType string `json:"alertType" bson:"alertType"`
	Severity  string `json:"severity" bson:"severity"`
	Status    string `json:"status" bson:"status"`

	// Targeting
	TargetRoles   []string             `json:"targetRoles,omitempty" bson:"targetRoles,omitempty"`
	TargetAreas   []string             `json:"targetAreas,omitempty" bson:"targetAreas,omitempty"`
	TargetUserIDs []primitive.ObjectID `json:"targetUserIds,omitempty" bson:"targetUserIds,omitempty"`
	ExcludeUserIDs []primitive.ObjectID `json:"excludeUserIds,omitempty" bson:"excludeUserIds,omitempty"`

	// Timing
	AlertStart    time.Time  `json:"alertStart" bson:"alertStart"`
	AlertEnd      *time.Time `json:"alertEnd,omitempty" bson:"alertEnd,omitempty"`
	AutoResolveAt *time.Time `json:"autoResolveAt,omitempty" bson:"autoResolveAt,omitempty"`

	// Acknowledgment
	RequiresAcknowledgment bool                 `json:"requiresAcknowledgment" bson:"requiresAcknowledgment"`
	AcknowledgedBy         []primitive.ObjectID `json:"acknowledgedBy,omitempty" bson:"acknowledgedBy,omitempty"`

	CreatedBy primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`

	// Statistics; TotalAcknowledged only moves via the guarded acknowledge update
	TotalRecipients   int `json:"totalRecipients" bson:"totalRecipients"`
	TotalDelivered    int `json:"totalDelivered" bson:"totalDelivered"`
	TotalAcknowledged int `json:"totalAcknowledged" bson:"totalAcknowledged"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsActive reports whether the alert is currently live.
func (a *EmergencyAlert) IsActive(now time.Time) bool {
	return a.Status == AlertStatusActive &&
		!a.AlertStart.After(now) &&
		(a.AlertEnd == nil || a.AlertEnd.After(now))
}

// AcknowledgmentRate returns the acknowledged/recipients percentage.
func (a *EmergencyAlert) AcknowledgmentRate() float64 {
	if a.TotalRecipients > 0 {
		return float64(a.TotalAcknowledged) / float64(a.TotalRecipients) * 100
	}
	return 0
}

type CreateAlertRequest struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Message                string     `json:"message" validate:"required"`
	AlertType              string     `json:"alertType" validate:"required"`
	Severity               string     `json:"severity" validate:"required,oneof=info warning alert emergency critical"`
	TargetRoles            []string   `json:"targetRoles,omitempty"`
	TargetAreas            []string   `json:"targetAreas,omitempty"`
	TargetUserIDs          []string   `json:"targetUserIds,omitempty"`
	ExcludeUserIDs         []string   `json:"excludeUserIds,omitempty"`
	RequiresAcknowledgment bool       `json:"requiresAcknowledgment"`
	AutoResolveAt          *time.Time `json:"autoResolveAt,omitempty"`
}

type SendEmergencyAlertRequest struct {
	AlertType     string   `json:"alertType" validate:"required"`
	Message       string   `json:"message" validate:"required"`
	AffectedAreas []string `json:"affectedAreas,omitempty"`
	ExcludeUsers  []string `json:"excludeUsers,omitempty"`
}

// FanOutResult is the aggregate outcome of an emergency broadcast. Partial
// delivery is reported, never surfaced as a hard failure.
type FanOutResult struct {
	TotalRecipients int `json:"totalRecipients"`
	TotalAttempts   int `json:"totalAttempts"`
	TotalDelivered  int `json:"totalDelivered"`
	TotalFailed     int `json:"totalFailed"`
}
