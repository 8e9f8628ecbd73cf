package ws

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	messages [][]byte
	failNext bool
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.failNext {
		return errors.New("write failed")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(log)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := newTestHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(map[string]any{"event": "transaction.status_changed", "transaction_id": "t1"})

	require.Len(t, a.messages, 1)
	require.Len(t, b.messages, 1)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(a.messages[0], &msg))
	assert.Equal(t, "transaction.status_changed", msg["event"])
	assert.Equal(t, "t1", msg["transaction_id"])
}

func TestHubPrunesFailedConnection(t *testing.T) {
	hub := newTestHub()
	healthy, broken := &fakeConn{}, &fakeConn{failNext: true}
	hub.Register(healthy)
	hub.Register(broken)
	require.Equal(t, 2, hub.Count())

	assert.NotPanics(t, func() {
		hub.Broadcast(map[string]any{"event": "e1"})
	})

	assert.Equal(t, 1, hub.Count(), "failed connection is removed from the live set")
	assert.True(t, broken.closed)

	// The next broadcast reaches only the remaining connection.
	hub.Broadcast(map[string]any{"event": "e2"})
	assert.Len(t, healthy.messages, 2)
}

func TestHubUnregister(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	hub.Register(c)
	hub.Unregister(c)

	hub.Broadcast(map[string]any{"event": "e"})
	assert.Empty(t, c.messages)
	assert.Equal(t, 0, hub.Count())
}

func TestHubSendRawToUnknownConnIsNoop(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	assert.NoError(t, hub.SendRaw(c, []byte("pong")))
	assert.Empty(t, c.messages)
}

func TestBroadcastHandlerMergesEventName(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	hub.Register(c)

	handler := BroadcastHandler(hub)
	handler("transaction.status_changed", map[string]any{
		"transaction_id": "t1",
		"old_status":     "pending",
		"new_status":     "processed",
	})

	require.Len(t, c.messages, 1)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(c.messages[0], &msg))
	assert.Equal(t, "transaction.status_changed", msg["event"])
	assert.Equal(t, "pending", msg["old_status"])
	assert.Equal(t, "processed", msg["new_status"])
}
