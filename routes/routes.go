// routes/routes.go
package routes

import (
	"time"

	"mediconnect/config"
	"mediconnect/controllers"
	"mediconnect/middleware"
	"mediconnect/utils"
	"mediconnect/websocket"
	"mediconnect/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Controllers initialization
type Controllers struct {
	Notification *controllers.NotificationController
	Emergency    *controllers.EmergencyController
	Channel      *controllers.ChannelController
	WebSocket    *controllers.WebSocketController
	Health       *controllers.HealthController
}

// SetupRoutes initializes all application routes
func SetupRoutes(
	cfg *config.Config,
	redisClient *redis.Client,
	stack *config.NotificationStack,
	hub *websocket.Hub,
	worker *workers.NotificationWorker,
) *gin.Engine {
	router := gin.New()

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	validator := utils.NewValidationService()
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	ctrl := &Controllers{
		Notification: controllers.NewNotificationController(stack.NotificationService, stack.PreferenceService, validator),
		Emergency:    controllers.NewEmergencyController(stack.EmergencyService, validator),
		Channel:      controllers.NewChannelController(stack.ChannelRepo, validator),
		WebSocket:    controllers.NewWebSocketController(hub, jwtService),
		Health:       controllers.NewHealthController(redisClient, worker),
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware(cfg.Environment))

	// Public routes
	router.GET("/health", ctrl.Health.HealthCheck)

	// WebSocket endpoint authenticates via token query parameter
	router.GET("/ws", ctrl.WebSocket.HandleWebSocket)

	// Authenticated API
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	api.Use(middleware.APIRateLimit(middleware.APIRateLimitConfig{
		Redis:    redisClient,
		Requests: cfg.RateLimitRequests,
		Window:   time.Duration(cfg.RateLimitWindow) * time.Minute,
	}))

	SetupNotificationRoutes(api, ctrl.Notification)
	SetupEmergencyRoutes(api, ctrl.Emergency, authMiddleware)
	SetupChannelRoutes(api, ctrl.Channel, authMiddleware)

	api.GET("/ws/stats", ctrl.WebSocket.GetHubStats)

	// Admin-only endpoints
	admin := router.Group("/api/v1/admin")
	admin.Use(authMiddleware.RequireAuth())
	admin.Use(authMiddleware.RequireRole("ADMIN"))
	admin.GET("/workers/stats", ctrl.Health.WorkerStats)

	return router
}
