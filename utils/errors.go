package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"`
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithStatus creates a service error with a specific HTTP status
func NewServiceErrorWithStatus(code, message string, statusCode int) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Common service errors
var (
	ErrNotificationNotFound = NewServiceErrorWithStatus("NOTIFICATION_NOT_FOUND", "Notification not found", http.StatusNotFound)
	ErrAlertNotFound        = NewServiceErrorWithStatus("ALERT_NOT_FOUND", "Emergency alert not found", http.StatusNotFound)
	ErrTemplateNotFound     = NewServiceErrorWithStatus("TEMPLATE_NOT_FOUND", "Notification template not found", http.StatusNotFound)
	ErrUserNotFound         = NewServiceErrorWithStatus("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrNotPending           = NewServiceErrorWithStatus("NOT_PENDING", "Notification is no longer pending", http.StatusConflict)
	ErrAlertNotActive       = NewServiceErrorWithStatus("ALERT_NOT_ACTIVE", "Emergency alert is not active", http.StatusConflict)
	ErrAlertNotDraft        = NewServiceErrorWithStatus("ALERT_NOT_DRAFT", "Emergency alert has already been activated", http.StatusConflict)
)
