package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types pushed over WebSocket
const (
	MessageTypeNotification = "notification"
	MessageTypeChatMessage  = "chat_message"
	MessageTypeConnected    = "connected"
	MessageTypeAuthResponse = "auth_response"
)

// Message represents a payload sent over WebSocket
type Message struct {
	Type         string      `json:"type"`
	Body         string      `json:"body,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userId,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client. A user may hold several
// clients at once (one per device).
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and routes messages to them
type Hub struct {
	clients                map[primitive.ObjectID]map[*Client]bool
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]map[*Client]bool),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.addClient(client)
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if conns, ok := h.clients[client.UserID]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
}

// SendToUser sends a message to every connection held by one user
func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) error {
	h.mu.RLock()
	conns, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok || len(conns) == 0 {
		return fmt.Errorf("user not connected")
	}

	for client := range conns {
		client.Conn.WriteJSON(message)
	}
	return nil
}

// BroadcastToUsers sends a message to every listed user that is connected.
// Disconnected users are skipped; they get the durable notification instead.
func (h *Hub) BroadcastToUsers(userIDs []primitive.ObjectID, message Message) {
	for _, userID := range userIDs {
		h.SendToUser(userID, message)
	}
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.unauthenticatedClients, client)
	client.Authenticated = true
	client.UserID = userID
	h.addClient(client)
}
