package kds

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// Channel is a named group of connections that receive the same messages.
type Channel string

const (
	ChannelAdmin   Channel = "admin"
	ChannelKitchen Channel = "kitchen"
	ChannelWaiters Channel = "waiters"
)

func TableChannel(tableID string) Channel {
	return Channel("table_" + tableID)
}

// RoleChannels lists the channels a connection joins when it authenticates
// with a role.
var RoleChannels = map[string][]Channel{
	models.RoleAdmin:    {ChannelAdmin, ChannelKitchen, ChannelWaiters},
	models.RoleWaiter:   {ChannelWaiters},
	models.RoleKitchen:  {ChannelKitchen},
	models.RoleCustomer: {},
}

// Client -> server events
const (
	EventAuthenticate = "authenticate"
	EventJoinTable    = "joinTable"
)

// Server -> client events
const (
	EventAuthenticated     = "authenticated"
	EventTableJoined       = "tableJoined"
	EventNewOrder          = "newOrder"
	EventOrderCreated      = "orderCreated"
	EventOrderStatusUpdate = "orderStatusUpdate"
	EventOrderReady        = "orderReady"
	EventTableStatusUpdate = "tableStatusUpdate"
	EventError             = "error"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Message is the envelope of every frame in both directions.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Authenticator verifies the token a connection presents.
type Authenticator interface {
	Authenticate(token string) (*Identity, error)
}

type AuthenticatorFunc func(token string) (*Identity, error)

func (f AuthenticatorFunc) Authenticate(token string) (*Identity, error) {
	return f(token)
}

// Stats counts live connections. Total and ByRole only include
// authenticated ones.
type Stats struct {
	Connections int            `json:"connections"`
	Total       int            `json:"total"`
	ByRole      map[string]int `json:"byRole"`
}

// Hub is the connection registry. It tracks which channels every
// connection belongs to and fans messages out to them.
type Hub struct {
	auth       Authenticator
	sendBuffer int

	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[Channel]map[string]*Client
}

func NewHub(auth Authenticator, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		auth:       auth,
		sendBuffer: sendBuffer,
		clients:    make(map[string]*Client),
		channels:   make(map[Channel]map[string]*Client),
	}
}

// Connect registers a new unauthenticated connection.
func (h *Hub) Connect() *Client {
	c := &Client{
		ID:       uuid.NewString(),
		hub:      h,
		send:     make(chan []byte, h.sendBuffer),
		channels: make(map[Channel]struct{}),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	utils.InfoLogger.WithField("connection", c.ID).Debug("websocket connected")
	return c
}

// Authenticate verifies token and subscribes c to its role channels,
// replacing those of any earlier identity. A table affiliation is kept.
func (h *Hub) Authenticate(c *Client, token string) (*Identity, error) {
	if h.auth == nil {
		return nil, errors.New("authentication unavailable")
	}
	identity, err := h.auth.Authenticate(token)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return nil, errors.New("connection closed")
	}

	if c.identity != nil {
		for _, ch := range RoleChannels[c.identity.Role] {
			h.unsubscribeLocked(c, ch)
		}
	}
	c.identity = identity
	for _, ch := range RoleChannels[identity.Role] {
		h.subscribeLocked(c, ch)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"connection": c.ID,
		"user":       identity.Username,
		"role":       identity.Role,
	}).Info("websocket authenticated")
	return identity, nil
}

// JoinTable moves c onto the channel of tableID, leaving any table it was
// following before.
func (h *Hub) JoinTable(c *Client, tableID string) (Channel, error) {
	if tableID == "" {
		return "", errors.New("tableId is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c.identity == nil {
		return "", ErrNotAuthenticated
	}

	room := TableChannel(tableID)
	if c.table != "" && c.table != room {
		h.unsubscribeLocked(c, c.table)
	}
	c.table = room
	h.subscribeLocked(c, room)

	utils.InfoLogger.WithFields(logrus.Fields{
		"connection": c.ID,
		"user":       c.identity.Username,
		"room":       room,
	}).Info("joined table")
	return room, nil
}

// Disconnect drops c and all its subscriptions. Calling it twice is safe.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		for ch := range c.channels {
			h.unsubscribeLocked(c, ch)
		}
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	c.close()
	utils.InfoLogger.WithField("connection", c.ID).Debug("websocket disconnected")
}

// Publish sends msg to every member of channel without blocking. A member
// whose queue is full misses the message. It returns the number of
// connections the message was queued for.
func (h *Hub) Publish(channel Channel, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("event", msg.Event).Error("failed to marshal message")
		return 0
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if c.enqueue(data) {
			delivered++
			continue
		}
		utils.ErrorLogger.WithFields(logrus.Fields{
			"connection": c.ID,
			"channel":    channel,
			"event":      msg.Event,
		}).Warn("dropping message for slow or closed connection")
	}
	return delivered
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{
		Connections: len(h.clients),
		ByRole:      make(map[string]int, len(RoleChannels)),
	}
	for role := range RoleChannels {
		stats.ByRole[role] = 0
	}
	for _, c := range h.clients {
		if c.identity == nil {
			continue
		}
		stats.Total++
		stats.ByRole[c.identity.Role]++
	}
	return stats
}

// Members returns how many connections belong to channel.
func (h *Hub) Members(channel Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) subscribeLocked(c *Client, ch Channel) {
	members, ok := h.channels[ch]
	if !ok {
		members = make(map[string]*Client)
		h.channels[ch] = members
	}
	members[c.ID] = c
	c.channels[ch] = struct{}{}
}

func (h *Hub) unsubscribeLocked(c *Client, ch Channel) {
	if members, ok := h.channels[ch]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.channels, ch)
		}
	}
	delete(c.channels, ch)
}
