package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleDoctor     = "DOCTOR"
	RoleNurse      = "NURSE"
	RoleDispatcher = "DISPATCHER"
	RoleParamedic  = "PARAMEDIC"
	RoleAdmin      = "ADMIN"
)

// User is the recipient-facing slice of the staff directory: identity,
// role, and contact endpoints the delivery adapters need.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	FirstName string             `json:"firstName" bson:"firstName"`
	LastName  string             `json:"lastName" bson:"lastName"`
	Role      string             `json:"role" bson:"role"`

	// FCM registration tokens, one per device
	DeviceTokens []string `json:"deviceTokens,omitempty" bson:"deviceTokens,omitempty"`

	HospitalID string `json:"hospitalId,omitempty" bson:"hospitalId,omitempty"`
	IsActive   bool   `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}

// ToRecipient resolves the user and an optional preference record into the
// delivery target handed to channel senders. Preferred contact info from the
// preference record wins over the directory entry.
func (u *User) ToRecipient(prefs *NotificationPreference) *Recipient {
	r := &Recipient{
		UserID:     u.ID.Hex(),
		Name:       u.FullName(),
		Email:      u.Email,
		Phone:      u.Phone,
		PushTokens: u.DeviceTokens,
	}
	if prefs != nil {
		if prefs.PreferredEmail != "" {
			r.Email = prefs.PreferredEmail
		}
		if prefs.PreferredPhone != "" {
			r.Phone = prefs.PreferredPhone
		}
	}
	return r
}
