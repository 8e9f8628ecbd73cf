package ws

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/events"
)

// keepaliveInterval bounds how long a connection may sit idle before the
// server sends a keepalive message.
const keepaliveInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API carries no credentials (auth is out of scope), so any origin
	// may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamHandler upgrades the request to a websocket, registers the connection
// with the hub and services the client until it disconnects. Clients may send
// "ping" and receive "pong"; idle periods are bridged with keepalive frames.
func StreamHandler(hub *Hub, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Error("ws upgrade failed")
			return
		}

		hub.Register(conn)
		defer func() {
			hub.Unregister(conn)
			conn.Close()
		}()

		for {
			conn.SetReadDeadline(time.Now().Add(keepaliveInterval))
			_, data, err := conn.ReadMessage()
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					// Idle client: send a keepalive and keep listening.
					if sendErr := hub.Send(conn, map[string]any{"type": "keepalive"}); sendErr != nil {
						return
					}
					continue
				}
				return
			}
			if string(data) == "ping" {
				if err := hub.SendRaw(conn, []byte("pong")); err != nil {
					return
				}
			}
		}
	}
}

// BroadcastHandler returns a bus handler that forwards status-change events
// to every live websocket client.
func BroadcastHandler(hub *Hub) events.Handler {
	return func(eventType string, payload map[string]any) {
		message := make(map[string]any, len(payload)+1)
		message["event"] = eventType
		for k, v := range payload {
			message[k] = v
		}
		hub.Broadcast(message)
	}
}
