// Package live pushes accepted scans to connected dashboards over websockets.
package live

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"schoolattend/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 32
)

// Message is the envelope written to clients.
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.WithFields(logrus.Fields{"module": "live", "scope": "hub"}),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and serves the client until it disconnects.
// Authentication happens before this is called.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- Message{Type: "WELCOME", ClientID: c.id, Timestamp: time.Now().Unix()}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.LiveClients.Inc()
	h.log.WithField("client", c.id).Info("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
		metrics.LiveClients.Dec()
	}
	h.mu.Unlock()
	h.log.WithField("client", c.id).Info("client disconnected")
}

// Broadcast queues msg for every client. Clients whose buffer is full miss it.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("client", id).Warn("client too slow, message dropped")
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, id)
		metrics.LiveClients.Dec()
	}
}

// readPump only drains control frames; dashboards never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithField("client", c.id).WithError(err).Warn("websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
