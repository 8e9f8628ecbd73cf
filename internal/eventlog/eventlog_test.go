package eventlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecentNewestFirst(t *testing.T) {
	log := New(10)
	for i := 0; i < 3; i++ {
		log.Append(Entry{Event: fmt.Sprintf("evt-%d", i), Timestamp: time.Now()})
	}

	entries := log.Recent(2)
	require.Len(t, entries, 2)
	assert.Equal(t, "evt-2", entries[0].Event)
	assert.Equal(t, "evt-1", entries[1].Event)
}

func TestLogEvictsOldest(t *testing.T) {
	log := New(2)
	log.Append(Entry{Event: "a"})
	log.Append(Entry{Event: "b"})
	log.Append(Entry{Event: "c"})

	entries := log.Recent(10)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].Event)
	assert.Equal(t, "b", entries[1].Event)
}

func TestLogFilters(t *testing.T) {
	log := New(10)
	log.Append(Entry{Event: "created", TransactionID: "t1", RequestID: "r1"})
	log.Append(Entry{Event: "enqueued", TransactionID: "t1", RequestID: "r2"})
	log.Append(Entry{Event: "created", TransactionID: "t2", RequestID: "r1"})

	byTx := log.ByTransaction("t1")
	require.Len(t, byTx, 2)
	assert.Equal(t, "created", byTx[0].Event)

	byReq := log.ByRequest("r1")
	require.Len(t, byReq, 2)
	assert.Equal(t, "t2", byReq[1].TransactionID)
}
