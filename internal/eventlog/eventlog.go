// Package eventlog keeps a bounded in-memory record of recent domain events
// for the read-only log viewer endpoint.
package eventlog

import (
	"sync"
	"time"
)

const defaultCapacity = 500

// Entry is a single recorded event with its correlation metadata.
type Entry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Service       string         `json:"service"`
	Event         string         `json:"event"`
	RequestID     string         `json:"request_id"`
	TransactionID string         `json:"transaction_id,omitempty"`
	JobID         string         `json:"job_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Log is a thread-safe ring of recent entries, oldest evicted first.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// New initializes a log holding at most capacity entries. A non-positive
// capacity falls back to the default.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Log{capacity: capacity}
}

// Append records an entry, evicting the oldest when full.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(l.entries) - 1; i >= len(l.entries)-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// ByTransaction returns all entries for a transaction id, oldest first.
func (l *Log) ByTransaction(transactionID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out
}

// ByRequest returns all entries recorded under a request id, oldest first.
func (l *Log) ByRequest(requestID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out
}
