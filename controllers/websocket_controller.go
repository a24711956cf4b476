package controllers

import (
	"mediconnect/utils"
	"mediconnect/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WebSocketController upgrades authenticated clients onto the in-app
// notification hub.
type WebSocketController struct {
	hub        *websocket.Hub
	jwtService *utils.JWTService
}

func NewWebSocketController(hub *websocket.Hub, jwtService *utils.JWTService) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
	}
}

// HandleWebSocket authenticates via the token query parameter (browser
// websocket clients cannot set headers) and hands the connection to the
// hub.
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.UnauthorizedResponse(c, "Token required")
		return
	}

	claims, err := wc.jwtService.ValidateToken(token)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid token")
		return
	}

	if err := websocket.ServeWS(wc.hub, c.Writer, c.Request, claims.UserID); err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
	}
}

// GetHubStats returns live connection statistics. Admin only.
func (wc *WebSocketController) GetHubStats(c *gin.Context) {
	utils.SuccessResponse(c, "Hub statistics", wc.hub.GetStats())
}
