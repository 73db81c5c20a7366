package websocket

import (
	"context"
	"sync"
	"time"

	"memorybox/models"

	"github.com/sirupsen/logrus"
)

// Hub tracks live connections per user and pushes in-app notifications to
// them. Delivery here is best effort on top of the persisted notification;
// a user with no open connection simply gets nothing pushed.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// User to client mapping for direct push; a user may hold several
	// connections (phone + web)
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	sendToUser chan userMessage

	stats HubStats

	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type userMessage struct {
	UserID  string
	Message models.WSMessage
}

type HubStats struct {
	TotalConnections  int64
	ActiveConnections int
	MessagesSent      int64
	StartTime         time.Time

	mutex sync.RWMutex
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		sendToUser:  make(chan userMessage, 256),
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	hub.cleanupTicker = time.NewTicker(5 * time.Minute)

	return hub
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	go h.runCleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.sendToUser:
			h.deliverToUser(msg)

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

// SendToUser queues a payload for every live connection the user holds.
// Returns false when the user is not connected.
func (h *Hub) SendToUser(userID string, event string, payload interface{}) bool {
	if !h.IsUserOnline(userID) {
		return false
	}

	msg := userMessage{
		UserID: userID,
		Message: models.WSMessage{
			Type:      event,
			Data:      payload,
			Timestamp: time.Now(),
		},
	}

	select {
	case h.sendToUser <- msg:
		return true
	default:
		logrus.Warn("SendToUser channel full, dropping push")
		return false
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.userClients[userID]) > 0
}

func (h *Hub) GetConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true

	h.stats.mutex.Lock()
	h.stats.ActiveConnections++
	h.stats.TotalConnections++
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	logrus.Infof("Client registered: %s (Total: %d)", client.userID, active)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if conns, exists := h.userClients[client.userID]; exists {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.userID)
		}
	}

	h.stats.mutex.Lock()
	h.stats.ActiveConnections--
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	logrus.Infof("Client unregistered: %s (Total: %d)", client.userID, active)
}

func (h *Hub) deliverToUser(msg userMessage) {
	h.mutex.RLock()
	conns := make([]*Client, 0, len(h.userClients[msg.UserID]))
	for client := range h.userClients[msg.UserID] {
		conns = append(conns, client)
	}
	h.mutex.RUnlock()

	for _, client := range conns {
		client.Send(msg.Message)
	}

	if len(conns) > 0 {
		h.stats.mutex.Lock()
		h.stats.MessagesSent++
		h.stats.mutex.Unlock()
	}
}

func (h *Hub) runCleanup() {
	for {
		select {
		case <-h.cleanupTicker.C:
			h.performCleanup()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) performCleanup() {
	h.mutex.RLock()
	var stale []*Client
	for client := range h.clients {
		if time.Since(client.lastActivity()) > 5*time.Minute {
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		logrus.Warnf("Removing inactive client: %s", client.userID)
		client.cleanup()
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")

	h.cleanupTicker.Stop()
	h.cancel()

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.cleanup()
	}

	logrus.Info("WebSocket Hub shutdown complete")
}
