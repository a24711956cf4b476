package controllers

import (
	"strconv"

	"mediconnect/models"
	"mediconnect/services"
	"mediconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type EmergencyController struct {
	emergencyService *services.EmergencyService
	validator        *utils.ValidationService
}

func NewEmergencyController(emergencyService *services.EmergencyService, validator *utils.ValidationService) *EmergencyController {
	return &EmergencyController{
		emergencyService: emergencyService,
		validator:        validator,
	}
}

// CreateAlert stores a draft emergency alert.
func (ec *EmergencyController) CreateAlert(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := ec.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	alert, err := ec.emergencyService.CreateAlert(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Create alert failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency alert created", alert)
}

// ActivateAlert activates a draft alert and fans it out.
func (ec *EmergencyController) ActivateAlert(c *gin.Context) {
	result, err := ec.emergencyService.ActivateAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		logrus.Errorf("Activate alert failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency alert activated", result)
}

// SendAlert creates and activates a system-wide alert in one call.
func (ec *EmergencyController) SendAlert(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.SendEmergencyAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := ec.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	alert, result, err := ec.emergencyService.SendEmergencyAlert(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Send alert failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency alert sent", gin.H{
		"alert":  alert,
		"fanOut": result,
	})
}

// AcknowledgeAlert records the authenticated user's acknowledgment.
// Safe to call repeatedly.
func (ec *EmergencyController) AcknowledgeAlert(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	alert, err := ec.emergencyService.AcknowledgeAlert(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert acknowledged", gin.H{
		"alertId":            alert.ID.Hex(),
		"totalAcknowledged":  alert.TotalAcknowledged,
		"acknowledgmentRate": alert.AcknowledgmentRate(),
		"totalRecipients":    alert.TotalRecipients,
	})
}

// ResolveAlert closes an active alert as resolved.
func (ec *EmergencyController) ResolveAlert(c *gin.Context) {
	if err := ec.emergencyService.ResolveAlert(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert resolved", nil)
}

// CancelAlert closes an active alert as cancelled.
func (ec *EmergencyController) CancelAlert(c *gin.Context) {
	if err := ec.emergencyService.CancelAlert(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert cancelled", nil)
}

// GetAlert returns one alert with its acknowledgment statistics.
func (ec *EmergencyController) GetAlert(c *gin.Context) {
	alert, err := ec.emergencyService.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert retrieved", alert)
}

// ListAlerts returns alerts filtered by status.
func (ec *EmergencyController) ListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	alerts, err := ec.emergencyService.ListAlerts(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		logrus.Errorf("List alerts failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to list alerts")
		return
	}

	utils.SuccessResponse(c, "Alerts retrieved", alerts)
}
