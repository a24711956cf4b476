// routes/channel.go
package routes

import (
	"mediconnect/controllers"
	"mediconnect/middleware"
	"mediconnect/models"

	"github.com/gin-gonic/gin"
)

// SetupChannelRoutes configures delivery channel management routes.
// Reads are open to all authenticated users; mutation is admin only.
func SetupChannelRoutes(router *gin.RouterGroup, channelController *controllers.ChannelController, auth *middleware.AuthMiddleware) {
	channels := router.Group("/channels")

	channels.GET("", channelController.ListChannels)
	channels.GET("/:id", channelController.GetChannel)

	manage := channels.Group("")
	manage.Use(auth.RequireRole(models.RoleAdmin))
	{
		manage.POST("", channelController.CreateChannel)
		manage.PUT("/:id/status", channelController.UpdateChannelStatus)
	}
}
