package controllers

import (
	"strconv"

	"mediconnect/models"
	"mediconnect/services"
	"mediconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationController struct {
	notificationService *services.NotificationService
	preferenceService   *services.PreferenceService
	validator           *utils.ValidationService
}

func NewNotificationController(
	notificationService *services.NotificationService,
	preferenceService *services.PreferenceService,
	validator *utils.ValidationService,
) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		preferenceService:   preferenceService,
		validator:           validator,
	}
}

// CreateNotification creates and queues a notification for delivery.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	var req models.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := nc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	notification, err := nc.notificationService.CreateNotification(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Create notification failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Notification created", notification)
}

// SendNotification delivers a pending notification synchronously and
// returns its final state.
func (nc *NotificationController) SendNotification(c *gin.Context) {
	notification, err := nc.notificationService.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	if err := nc.notificationService.SendNotification(c.Request.Context(), notification); err != nil {
		logrus.Errorf("Send notification %s failed: %v", notification.ID.Hex(), err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification sent", notification)
}

// SendBulk renders a template and delivers it to a list of users.
// Admin only.
func (nc *NotificationController) SendBulk(c *gin.Context) {
	var req models.BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := nc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := nc.notificationService.SendBulk(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Bulk send failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Bulk notification processed", result)
}

// GetNotification returns one notification by ID.
func (nc *NotificationController) GetNotification(c *gin.Context) {
	notification, err := nc.notificationService.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification retrieved", notification)
}

// ListNotifications returns the authenticated user's notifications with
// pagination and optional status filter.
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	status := c.Query("status")

	notifications, total, err := nc.notificationService.ListUserNotifications(c.Request.Context(), userID, page, pageSize, status)
	if err != nil {
		logrus.Errorf("List notifications failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to list notifications")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, &models.MetaData{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CancelNotification cancels a notification that has not gone out yet.
func (nc *NotificationController) CancelNotification(c *gin.Context) {
	if err := nc.notificationService.CancelNotification(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification cancelled", nil)
}

// GetDeliveryHistory returns the per-channel attempt log for a
// notification.
func (nc *NotificationController) GetDeliveryHistory(c *gin.Context) {
	history, err := nc.notificationService.GetDeliveryHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		logrus.Errorf("Get delivery history failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to load delivery history")
		return
	}

	utils.SuccessResponse(c, "Delivery history retrieved", history)
}

// GetPreferences returns the authenticated user's notification
// preferences.
func (nc *NotificationController) GetPreferences(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	prefs, err := nc.preferenceService.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("Get preferences failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to load preferences")
		return
	}

	utils.SuccessResponse(c, "Preferences retrieved", prefs)
}

// UpdatePreferences applies a partial preference update for the
// authenticated user.
func (nc *NotificationController) UpdatePreferences(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := nc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	prefs, err := nc.preferenceService.UpdatePreferences(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Update preferences failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to update preferences")
		return
	}

	utils.SuccessResponse(c, "Preferences updated", prefs)
}
