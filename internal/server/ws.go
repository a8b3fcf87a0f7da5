package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/zengarden/internal/app"
	"github.com/ayusman/zengarden/internal/audio"
)

const (
	clientQueueSize = 16
	writeTimeout    = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is the envelope of everything sent over /api/ws.
type Message struct {
	Type   string      `json:"type"` // "update" or "cue"
	Update *app.Update `json:"update,omitempty"`
	Cue    audio.Cue   `json:"cue,omitempty"`
	// URL is where the browser fetches the cue sound.
	URL string `json:"url,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts control updates and sound cues to WebSocket clients. It
// implements both app.Publisher and audio.Sink. Broadcasts never block: a
// client that falls behind misses messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	log.Printf("websocket client %s connected (%d total)", c.id, len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	log.Printf("websocket client %s disconnected", c.id)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Publish sends one control cycle to every client.
func (h *Hub) Publish(u app.Update) {
	h.broadcast(Message{Type: "update", Update: &u})
}

// PlayCue tells every client to play cue. The browser fetches the sound
// bytes once from /api/sounds/{cue} and caches them.
func (h *Hub) PlayCue(cue audio.Cue, _ *audio.Sound) error {
	h.broadcast(Message{Type: "cue", Cue: cue, URL: "/api/sounds/" + string(cue)})
	return nil
}

func (h *Hub) broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("failed to encode %s message: %v", m.Type, err)
		return
	}
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
