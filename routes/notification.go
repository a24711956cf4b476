// routes/notification.go
package routes

import (
	"mediconnect/controllers"

	"github.com/gin-gonic/gin"
)

// SetupNotificationRoutes configures notification related routes
func SetupNotificationRoutes(router *gin.RouterGroup, notificationController *controllers.NotificationController) {
	notifications := router.Group("/notifications")
	{
		notifications.POST("", notificationController.CreateNotification)
		notifications.POST("/:id/send", notificationController.SendNotification)
		notifications.POST("/bulk", notificationController.SendBulk)
		notifications.GET("", notificationController.ListNotifications)
		notifications.GET("/:id", notificationController.GetNotification)
		notifications.POST("/:id/cancel", notificationController.CancelNotification)
		notifications.GET("/:id/deliveries", notificationController.GetDeliveryHistory)
	}

	// Per-user delivery preferences
	preferences := router.Group("/preferences")
	{
		preferences.GET("", notificationController.GetPreferences)
		preferences.PUT("", notificationController.UpdatePreferences)
	}
}
