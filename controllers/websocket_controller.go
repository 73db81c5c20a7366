// controllers/websocket_controller.go
package controllers

import (
	"memorybox/middleware"
	"memorybox/utils"
	"memorybox/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
}

func NewWebSocketController(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware) *WebSocketController {
	return &WebSocketController{
		hub:            hub,
		authMiddleware: authMiddleware,
	}
}

// HandleWebSocket upgrades the connection for realtime notification delivery
// @Summary WebSocket endpoint
// @Description Establish a WebSocket connection for live in-app notifications
// @Tags WebSocket
// @Param token query string true "Authentication token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.APIResponse
// @Router /ws [get]
func (wsc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.UnauthorizedResponse(c, "Authentication token is required")
		return
	}

	user, err := wsc.authMiddleware.WebSocketAuth(token)
	if err != nil {
		logrus.Debugf("WebSocket authentication failed: %v", err)
		utils.UnauthorizedResponse(c, "Invalid authentication token")
		return
	}

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(conn, wsc.hub, user.ID.Hex())
	client.Start()

	logrus.WithField("user_id", user.ID.Hex()).Debug("WebSocket client connected")
}
