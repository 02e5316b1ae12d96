package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"stayalive/internal/domain"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	pingPeriod      = (60 * 9 * time.Second) / 10
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	ID      uuid.UUID
	Role    domain.Role
	Conn    *websocket.Conn
	Manager *Manager
	send    chan Message
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewClient(id uuid.UUID, role domain.Role, conn *websocket.Conn, manager *Manager) *Client {
	ctx, cancel := context.WithCancel(manager.ctx)
	return &Client{
		ID:      id,
		Role:    role,
		Conn:    conn,
		Manager: manager,
		send:    make(chan Message, sendChannelSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
}

func (c *Client) Close() {
	if c.Conn != nil {
		if err := c.Conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
			c.Manager.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
		}
	}
	c.cancel()
}

// Send queues a message without blocking. A full buffer means the client is
// too slow to keep up; it gets disconnected and the message is dropped.
func (c *Client) Send(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		go c.Manager.forceDisconnect(c)
		return false
	}
}

// Outbox exposes the queued outbound messages. The write pump is the normal
// consumer.
func (c *Client) Outbox() <-chan Message {
	return c.send
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Close()
	}()

	for {
		var msg Message
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Manager.logger.Debug("read loop ended", "clientID", c.ID, "error", err)
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := wsjson.Write(c.ctx, c.Conn, msg); err != nil {
				c.Manager.logger.Warn("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Manager.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "position":
		// Only rescuers report live positions over the socket.
		if c.Role != domain.RoleRescuer || c.Manager.positions == nil {
			return
		}
		var pos domain.PositionRequest
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			c.Manager.logger.Warn("failed to unmarshal position", "clientID", c.ID, "error", err)
			return
		}
		err := c.Manager.positions.Set(c.ctx, domain.RescuerPosition{
			RescuerID: c.ID,
			Lat:       pos.Latitude,
			Lng:       pos.Longitude,
		})
		if err != nil {
			c.Manager.logger.Warn("failed to store position", "clientID", c.ID, "error", err)
		}
	default:
		c.Manager.logger.Debug("received unknown type message", "clientID", c.ID, "type", msg.Type)
	}
}
