// Package ws fans status-change events out to live websocket clients.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is the write surface the hub needs from a client connection. It is
// satisfied by *websocket.Conn wrapped in a client; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the package
// into every test.
const textMessage = 1

// client wraps a connection with a write lock: gorilla connections allow a
// single concurrent writer, and both the broadcast path and the per-client
// keepalive path write.
type client struct {
	conn Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(textMessage, data)
}

// Hub maintains the live set of client connections and broadcasts messages to
// all of them. Registration, removal and broadcast may run from concurrent
// goroutines.
type Hub struct {
	mu      sync.Mutex
	clients map[Conn]*client
	log     *logrus.Logger
}

// NewHub initializes an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[Conn]*client),
		log:     log,
	}
}

// Register adds a connection to the live set.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.WithField("clients", n).Info("ws client connected")
}

// Unregister removes a connection from the live set.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.WithField("clients", n).Info("ws client disconnected")
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes the message once and writes it to every live
// connection. A connection that fails the write is pruned; the broadcast
// always proceeds to the remaining connections.
func (h *Hub) Broadcast(message map[string]any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("ws broadcast marshal failed")
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	var failed []Conn
	for _, c := range targets {
		if err := c.write(data); err != nil {
			failed = append(failed, c.conn)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
			conn.Close()
		}
		h.mu.Unlock()
	}

	h.log.WithFields(logrus.Fields{
		"event":   message["event"],
		"clients": len(targets),
		"pruned":  len(failed),
	}).Debug("ws broadcast")
}

// Send writes a message to a single registered connection.
func (h *Hub) Send(conn Conn, message map[string]any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return h.SendRaw(conn, data)
}

// SendRaw writes pre-serialized data to a single registered connection.
func (h *Hub) SendRaw(conn Conn, data []byte) error {
	h.mu.Lock()
	c, ok := h.clients[conn]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return c.write(data)
}
