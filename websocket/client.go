package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mediconnect/models"

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
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

type Client struct {
	conn *websocket.Conn

	userID string

	connectionID string
	connectedAt  time.Time
	lastActivity time.Time

	// Buffered channel of outbound messages
	send chan models.WSMessage

	hub *Hub

	isActive      bool
	pingFailCount int

	ctx    context.Context
	cancel context.CancelFunc
}

// ServeWS upgrades an authenticated HTTP request to a websocket connection
// and registers the client with the hub. The caller resolves userID from
// the JWT before calling.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed for user %s: %v", userID, err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		conn:         conn,
		hub:          hub,
		userID:       userID,
		send:         make(chan models.WSMessage, sendBufferSize),
		connectionID: uuid.New().String(),
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
		isActive:     true,
		ctx:          ctx,
		cancel:       cancel,
	}

	hub.register <- client

	go client.WritePump()
	go client.ReadPump()

	return nil
}

func (c *Client) ReadPump() {
	defer func() {
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.pingFailCount = 0
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, messageData, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Errorf("WebSocket error for user %s: %v", c.userID, err)
				}
				return
			}

			c.lastActivity = time.Now()
			c.handleMessage(messageData)
		}
	}
}

func (c *Client) WritePump() {
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
				c.pingFailCount++
				if c.pingFailCount > 3 {
					logrus.Warnf("Ping failed for user %s, disconnecting", c.userID)
					return
				}
			}
		}
	}
}

func (c *Client) handleMessage(messageData []byte) {
	var message models.WSMessage
	if err := json.Unmarshal(messageData, &message); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch message.Type {
	case models.WSTypePing:
		c.SendMessage(models.WSMessage{
			Type:      models.WSTypePong,
			Timestamp: time.Now(),
		})
	case models.WSTypeAck:
		// Delivery receipts are informational only; the client confirmed
		// it rendered the notification.
		logrus.Debugf("Client %s acknowledged message", c.userID)
	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) sendError(message string) {
	errorMsg := models.WSMessage{
		Type: models.WSTypeError,
		Data: map[string]interface{}{
			"message": message,
		},
		Timestamp: time.Now(),
	}

	select {
	case c.send <- errorMsg:
	default:
		// Channel full
	}
}

func (c *Client) SendMessage(message models.WSMessage) {
	if !c.isActive {
		return
	}

	select {
	case c.send <- message:
	default:
		// Channel full, likely client disconnected
		logrus.Warnf("Send channel full for user %s", c.userID)
	}
}

func (c *Client) cleanup() {
	if !c.isActive {
		return
	}
	c.isActive = false
	c.cancel()

	select {
	case c.hub.unregister <- c:
	default:
	}

	close(c.send)
	c.conn.Close()

	logrus.Infof("Client disconnected: %s (%s)", c.userID, c.connectionID)
}
