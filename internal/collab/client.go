package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout  = 10 * time.Second
	keepAlive     = 30 * time.Second
	maxFrameBytes = 64 * 1024
	queueDepth    = 256
)

// Client is one browser tab connected to a live session. Its identity fields
// are fixed at the handshake and stamped onto everything it sends.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	UserID      string
	DisplayName string
	SessionID   string
	ClientID    string

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, sessionID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, queueDepth),
		UserID:      userID,
		DisplayName: displayName,
		SessionID:   sessionID,
		ClientID:    clientID,
	}
}

// ReadPump feeds the tab's operations and presence updates to the hub until
// the connection drops, then unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxFrameBytes)

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if !expectedClose(err) {
				slog.Debug("session read", "error", err, "user", c.UserID, "session", c.SessionID)
			}
			return
		}

		msg, reason := c.decode(typ, data)
		if msg == nil {
			c.Send(message(TypeError, ErrorPayload{Message: reason}))
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// decode parses one inbound frame. On failure it returns nil and the text
// sent back to the tab.
func (c *Client) decode(typ websocket.MessageType, data []byte) (*Message, string) {
	if typ != websocket.MessageText {
		return nil, "expected a text frame"
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("malformed session message", "error", err, "user", c.UserID)
		return nil, "invalid message"
	}
	if msg.SessionID != "" && msg.SessionID != c.SessionID {
		return nil, "message addressed to another session"
	}

	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.SessionID = c.SessionID
	return &msg, ""
}

func expectedClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

// WritePump delivers queued hub messages in order and pings the tab every
// keepAlive. It returns once the queue is closed or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(keepAlive)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, data); err != nil {
				slog.Debug("session write", "error", err, "user", c.UserID, "session", c.SessionID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Send queues msg for the tab. A slow tab whose queue is full misses the
// message; the next state.sync brings it back in line.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err, "type", msg.Type)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("send queue full, dropping message", "type", msg.Type, "user", c.UserID, "session", c.SessionID)
	}
}

// close ends the write pump after the queued messages go out.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
