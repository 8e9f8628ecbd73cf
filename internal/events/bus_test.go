package events

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewBus(log)
}

func TestBusPublishToExactSubscriber(t *testing.T) {
	bus := newTestBus()

	var got []map[string]any
	bus.Subscribe("transaction.created", func(_ string, payload map[string]any) {
		got = append(got, payload)
	})

	bus.Publish("transaction.created", map[string]any{"transaction_id": "t1"})
	bus.Publish("transaction.status_changed", map[string]any{"transaction_id": "t1"})

	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0]["transaction_id"])
}

func TestBusWildcardObservesEverythingInOrder(t *testing.T) {
	bus := newTestBus()

	var names []string
	bus.Subscribe(Wildcard, func(eventType string, _ map[string]any) {
		names = append(names, eventType)
	})

	bus.Publish("a", nil)
	bus.Publish("b", nil)
	bus.Publish("c", nil)

	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var first, second int
	id := bus.Subscribe("evt", func(string, map[string]any) { first++ })
	bus.Subscribe("evt", func(string, map[string]any) { second++ })

	bus.Publish("evt", nil)
	bus.Unsubscribe("evt", id)
	bus.Publish("evt", nil)

	assert.Equal(t, 1, first, "unsubscribed handler must not receive further events")
	assert.Equal(t, 2, second, "other subscribers are unaffected")
}

func TestBusHandlerPanicIsolated(t *testing.T) {
	bus := newTestBus()

	var delivered bool
	bus.Subscribe("evt", func(string, map[string]any) { panic("boom") })
	bus.Subscribe("evt", func(string, map[string]any) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish("evt", map[string]any{})
	})
	assert.True(t, delivered, "a panicking handler must not block delivery to the rest")
}

func TestBusUnsubscribeUnknownToken(t *testing.T) {
	bus := newTestBus()
	assert.NotPanics(t, func() { bus.Unsubscribe("evt", 42) })
}
