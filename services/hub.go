package services

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub pushes game events (timer ticks, transient messages, score updates,
// game over) to the WebSocket clients watching a session.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	sessions   *SessionService
}

type Client struct {
	hub       *Hub
	id        string
	socket    *websocket.Conn
	send      chan []byte
	sessionID string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(sessions *SessionService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client registered: %s for session %s - Total clients: %d", client.id, client.sessionID, len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s for session %s - Total clients: %d", client.id, client.sessionID, len(h.clients))
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) BroadcastToSession(sessionID string, messageType string, payload interface{}) {
	message := Message{
		Type:    messageType,
		Payload: payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	// Sends happen under the read lock; closing and removing a client only
	// ever happens in Run under the write lock, so a racing broadcast can
	// neither write a closed channel nor mutate the map concurrently.
	h.mutex.RLock()
	var stalled []*Client
	for client := range h.clients {
		if client.sessionID == sessionID {
			select {
			case client.send <- data:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()

	for _, client := range stalled {
		h.unregister <- client
	}
}

// SendStateSync pushes the full session snapshot to one client, used when a
// client connects or explicitly asks to resync.
func (h *Hub) SendStateSync(client *Client) {
	if h.sessions == nil {
		return
	}

	view, err := h.sessions.Snapshot(client.sessionID)
	if err != nil {
		log.Printf("Error getting session state for client %s: %v", client.id, err)
		return
	}

	message := Message{
		Type:    "state_sync",
		Payload: view,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling state sync message: %v", err)
		return
	}

	if !h.trySend(client, data) {
		h.unregister <- client
	}
}

// trySend delivers data to a still-registered client. Returns false when the
// client's buffer is full and it should be evicted.
func (h *Hub) trySend(client *Client, data []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, ok := h.clients[client]; !ok {
		return true
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, sessionID string) *Client {
	client := &Client{
		hub:       h,
		id:        generateClientID(),
		socket:    conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}

	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{
			Type:    "pong",
			Payload: "pong",
		}
		data, _ := json.Marshal(response)
		if !c.hub.trySend(c, data) {
			c.hub.UnregisterClient(c)
		}

	case "request_state":
		c.hub.SendStateSync(c)

	default:
		log.Printf("Unknown message type: %s from client %s in session %s", msg.Type, c.id, c.sessionID)
	}
}

func generateClientID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return "client_" + hex.EncodeToString(bytes)
}
