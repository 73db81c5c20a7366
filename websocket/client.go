package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"memorybox/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Buffer size for client send channel
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// Upgrade upgrades an HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Client is one authenticated websocket connection. Clients only receive;
// inbound frames are limited to the protocol-level ping/pong.
type Client struct {
	conn *websocket.Conn

	userID       string
	connectionID string
	connectedAt  time.Time

	send chan models.WSMessage

	hub *Hub

	activityMu sync.RWMutex
	activity   time.Time

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:         conn,
		hub:          hub,
		userID:       userID,
		connectionID: uuid.NewString(),
		connectedAt:  time.Now(),
		send:         make(chan models.WSMessage, sendBufferSize),
		activity:     time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start registers the client with the hub and runs both pumps.
func (c *Client) Start() {
	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}

// Send queues a message for the connection, dropping when the peer cannot
// keep up.
func (c *Client) Send(message models.WSMessage) {
	select {
	case c.send <- message:
	default:
		logrus.Warnf("Send buffer full for user %s, dropping message", c.userID)
	}
}

func (c *Client) readPump() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket error for user %s: %v", c.userID, err)
			}
			return
		}
		c.touch()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.Errorf("Write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) touch() {
	c.activityMu.Lock()
	c.activity = time.Now()
	c.activityMu.Unlock()
}

func (c *Client) lastActivity() time.Time {
	c.activityMu.RLock()
	defer c.activityMu.RUnlock()
	return c.activity
}

func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(time.Second):
		}
	})
}
