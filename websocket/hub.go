package websocket

import (
	"context"
	"sync"
	"time"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
)

// Hub tracks connected clients per user and fans messages out to them.
// A user may hold several connections (desktop, pager app, phone).
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// User to clients mapping for direct delivery
	userClients map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast to every connected client
	broadcast chan models.WSMessage

	// Send message to a specific user's connections
	sendToUser chan UserMessage

	stats HubStats

	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type UserMessage struct {
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
		broadcast:   make(chan models.WSMessage, 64),
		sendToUser:  make(chan UserMessage, 256),
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

		case message := <-h.broadcast:
			h.broadcastToAll(message)

		case userMessage := <-h.sendToUser:
			h.sendMessageToUser(userMessage)

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true
	h.stats.ActiveConnections++
	h.stats.TotalConnections++

	logrus.Infof("Client registered: %s (Total: %d)", client.userID, h.stats.ActiveConnections)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		if conns, exists := h.userClients[client.userID]; exists {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.userClients, client.userID)
			}
		}
		h.stats.ActiveConnections--

		logrus.Infof("Client unregistered: %s (Total: %d)", client.userID, h.stats.ActiveConnections)
	}
}

func (h *Hub) broadcastToAll(message models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		client.SendMessage(message)
	}
	h.incrementMessagesSent()
}

func (h *Hub) sendMessageToUser(userMessage UserMessage) {
	h.mutex.RLock()
	conns := h.userClients[userMessage.UserID]
	h.mutex.RUnlock()

	for client := range conns {
		client.SendMessage(userMessage.Message)
	}
	if len(conns) > 0 {
		h.incrementMessagesSent()
	}
}

// SendNotificationToUser pushes an in-app notification to every live
// connection the user holds. Returns false when the user is offline.
func (h *Hub) SendNotificationToUser(userID string, notification models.WSNotification) bool {
	if !h.IsUserOnline(userID) {
		return false
	}

	message := models.WSMessage{
		Type:      models.WSTypeNotification,
		UserID:    userID,
		Data:      notification,
		Timestamp: time.Now(),
	}

	userMsg := UserMessage{
		UserID:  userID,
		Message: message,
	}

	select {
	case h.sendToUser <- userMsg:
		return true
	default:
		logrus.Warn("SendToUser channel full, dropping notification")
		return false
	}
}

// BroadcastEmergencyAlert pushes an alert to every connected client.
func (h *Hub) BroadcastEmergencyAlert(alert models.WSEmergencyAlert) {
	message := models.WSMessage{
		Type:      models.WSTypeEmergencyAlert,
		Data:      alert,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		logrus.Warn("Broadcast channel full, dropping emergency alert")
	}
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

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.userClients[userID]) > 0
}

func (h *Hub) GetStats() map[string]interface{} {
	h.stats.mutex.RLock()
	defer h.stats.mutex.RUnlock()

	return map[string]interface{}{
		"totalConnections":  h.stats.TotalConnections,
		"activeConnections": h.stats.ActiveConnections,
		"messagesSent":      h.stats.MessagesSent,
		"uptime":            time.Since(h.stats.StartTime).String(),
	}
}

func (h *Hub) incrementMessagesSent() {
	h.stats.mutex.Lock()
	h.stats.MessagesSent++
	h.stats.mutex.Unlock()
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
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if !client.isActive || time.Since(client.lastActivity) > 5*time.Minute {
			logrus.Warnf("Removing inactive client: %s", client.userID)
			go client.cleanup()
		}
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")

	h.cleanupTicker.Stop()
	h.cancel()

	h.mutex.Lock()
	for client := range h.clients {
		client.cleanup()
	}
	h.mutex.Unlock()

	logrus.Info("WebSocket Hub shutdown complete")
}
