package models

import "time"

// WebSocket message types
const (
	WSTypeNotification   = "notification"
	WSTypeEmergencyAlert = "emergency_alert"
	WSTypeAck            = "ack"
	WSTypePing           = "ping"
	WSTypePong           = "pong"
	WSTypeError          = "error"
)

// WebSocket message envelope for the in-app channel.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	UserID    string      `json:"userId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WSNotification is the in-app payload pushed to a user's websocket clients.
type WSNotification struct {
	NotificationID string                 `json:"notificationId"`
	Type           string                 `json:"type"`
	Priority       Priority               `json:"priority"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// WSEmergencyAlert is broadcast to the emergency_alerts group on activation.
type WSEmergencyAlert struct {
	AlertID                string    `json:"alertId"`
	AlertType              string    `json:"alertType"`
	Severity               string    `json:"severity"`
	Title                  string    `json:"title"`
	Message                string    `json:"message"`
	RequiresAcknowledgment bool      `json:"requiresAcknowledgment"`
	Timestamp              time.Time `json:"timestamp"`
}
