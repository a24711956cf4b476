// routes/emergency.go
package routes

import (
	"mediconnect/controllers"
	"mediconnect/middleware"
	"mediconnect/models"

	"github.com/gin-gonic/gin"
)

// SetupEmergencyRoutes configures emergency alert routes. Raising and
// closing alerts is restricted to dispatch and clinical leads;
// acknowledgment is open to every authenticated recipient.
func SetupEmergencyRoutes(router *gin.RouterGroup, emergencyController *controllers.EmergencyController, auth *middleware.AuthMiddleware) {
	alerts := router.Group("/emergency-alerts")

	raise := alerts.Group("")
	raise.Use(auth.RequireRole(models.RoleDispatcher, models.RoleDoctor))
	{
		raise.POST("", emergencyController.CreateAlert)
		raise.POST("/send", emergencyController.SendAlert)
		raise.POST("/:id/activate", emergencyController.ActivateAlert)
		raise.POST("/:id/resolve", emergencyController.ResolveAlert)
		raise.POST("/:id/cancel", emergencyController.CancelAlert)
	}

	alerts.GET("", emergencyController.ListAlerts)
	alerts.GET("/:id", emergencyController.GetAlert)
	alerts.POST("/:id/acknowledge", emergencyController.AcknowledgeAlert)
}
