// Package queue provides the in-process job queue between the API layer and
// the worker loop. Jobs are handed off FIFO with no acknowledgement or
// redelivery: once dequeued, a job is gone regardless of processing outcome.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/legali/transaction-service/internal/models"
)

// Queue is the hand-off contract between enqueueing callers and the worker.
type Queue interface {
	// Enqueue appends a job and returns its locally-unique id. It never blocks.
	Enqueue(jobType string, payload map[string]string) string
	// Dequeue pops the oldest job, blocking up to timeout. The second return
	// is false when the timeout expired or the context was cancelled.
	Dequeue(ctx context.Context, timeout time.Duration) (models.Job, bool)
}

// MemoryQueue is a mutex-guarded FIFO queue with a blocking dequeue.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    []models.Job
	counter int
	// signal wakes a blocked Dequeue after an Enqueue. Capacity 1: a single
	// pending wakeup is enough because Dequeue re-checks the slice in a loop.
	signal chan struct{}
}

// NewMemoryQueue initializes an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{signal: make(chan struct{}, 1)}
}

// Enqueue appends a job and returns its id.
func (q *MemoryQueue) Enqueue(jobType string, payload map[string]string) string {
	q.mu.Lock()
	q.counter++
	job := models.Job{
		ID:      fmt.Sprintf("job-%d", q.counter),
		Type:    jobType,
		Payload: payload,
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return job.ID
}

// Dequeue pops the oldest job, blocking up to timeout.
func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (models.Job, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if job, ok := q.pop(); ok {
			return job, true
		}
		select {
		case <-q.signal:
		case <-deadline.C:
			return models.Job{}, false
		case <-ctx.Done():
			return models.Job{}, false
		}
	}
}

// Len reports the number of jobs waiting to be processed.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *MemoryQueue) pop() (models.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return models.Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}
