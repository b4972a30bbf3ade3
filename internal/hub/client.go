package hub

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // viewers only send small reports
	sendBuffer     = 64
)

// Client is a middleman between one viewer's websocket and the hub
type Client struct {
	id   string
	seq  uint64 // Registration order, used for deterministic broadcasts
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// newClient creates a client with a random viewer id
func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		seq:  hub.seq.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// ID returns the viewer id
func (c *Client) ID() string {
	return c.id
}

// readPump pumps viewer reports from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Unexpected websocket close", zap.String("viewer", c.id), zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("Ignoring malformed viewer message", zap.String("viewer", c.id), zap.Error(err))
			continue
		}
		if msg.Type == MessageTypePing {
			c.enqueue(Message{Type: MessageTypePong})
			continue
		}
		c.hub.handleReport(c, msg)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("Failed to write to viewer", zap.String("viewer", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue encodes msg for this client only, dropping it when the buffer is full
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// start begins reading and writing for the client
func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}
