package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	log := hub.log
	server := httptest.NewServer(StreamHandler(hub, log))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestStreamHandlerRegistersClient(t *testing.T) {
	hub := newTestHub()
	_, cleanup := dialStream(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestStreamHandlerPingPong(t *testing.T) {
	hub := newTestHub()
	conn, cleanup := dialStream(t, hub)
	defer cleanup()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))
}

func TestStreamHandlerDeliversBroadcast(t *testing.T) {
	hub := newTestHub()
	conn, cleanup := dialStream(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Broadcast(map[string]any{
		"event":          "transaction.status_changed",
		"transaction_id": "t1",
		"old_status":     "pending",
		"new_status":     "processed",
		"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "transaction.status_changed", msg["event"])
	assert.Equal(t, "t1", msg["transaction_id"])
	assert.NotEmpty(t, msg["timestamp"])
}

func TestStreamHandlerUnregistersOnClose(t *testing.T) {
	hub := newTestHub()
	conn, cleanup := dialStream(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 },
		time.Second, 10*time.Millisecond)
}
