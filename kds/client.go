package kds

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection. identity, table and channels are
// guarded by the hub lock.
type Client struct {
	ID  string
	hub *Hub

	identity *Identity
	table    Channel
	channels map[Channel]struct{}

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

func (c *Client) Identity() *Identity {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

// Send queues msg for this connection only.
func (c *Client) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("event", msg.Event).Error("failed to marshal message")
		return false
	}
	return c.enqueue(data)
}

// Outbound exposes the queue drained by the writer.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandleMessage applies one client frame and queues the reply.
func (c *Client) HandleMessage(raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.Send(Message{Event: EventError, Data: map[string]string{"message": "Invalid message"}})
		return
	}

	switch in.Event {
	case EventAuthenticate:
		identity, err := c.hub.Authenticate(c, stringArg(in.Data, "token"))
		if err != nil {
			utils.InfoLogger.WithField("connection", c.ID).Info("websocket authentication failed")
			c.Send(Message{Event: EventAuthenticated, Data: map[string]interface{}{"success": false, "error": "Invalid token"}})
			return
		}
		c.Send(Message{Event: EventAuthenticated, Data: map[string]interface{}{"success": true, "user": identity}})

	case EventJoinTable:
		tableID := stringArg(in.Data, "tableId")
		room, err := c.hub.JoinTable(c, tableID)
		if errors.Is(err, ErrNotAuthenticated) {
			c.Send(Message{Event: EventError, Data: map[string]string{"message": "Not authenticated"}})
			return
		}
		if err != nil {
			c.Send(Message{Event: EventError, Data: map[string]string{"message": err.Error()}})
			return
		}
		c.Send(Message{Event: EventTableJoined, Data: map[string]interface{}{"tableId": tableID, "room": room}})

	default:
		c.Send(Message{Event: EventError, Data: map[string]string{"message": "Unknown event: " + in.Event}})
	}
}

// stringArg accepts either a bare JSON string or an object holding key.
func stringArg(data json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil {
		if v, ok := obj[key].(string); ok {
			return v
		}
	}
	return ""
}

// Serve runs the connection until it closes: the reader on the calling
// goroutine and the writer on its own.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := h.Connect()
	done := make(chan struct{})
	go func() {
		c.writePump(conn)
		close(done)
	}()

	c.readPump(conn)
	h.Disconnect(c)
	<-done
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.ErrorLogger.WithFields(logrus.Fields{"connection": c.ID, "error": err}).Warn("websocket read failed")
			}
			return
		}
		c.HandleMessage(raw)
	}
}

func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
