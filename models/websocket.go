// models/websocket.go
package models

import "time"

// WebSocket Event Type Constants
const (
	WSTypeNotification = "notification"
	WSTypeUnreadCount  = "unread_count"
)

// WSMessage is the envelope for every frame pushed to a client.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
