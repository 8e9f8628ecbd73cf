package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/events"
	"github.com/legali/transaction-service/internal/models"
	"github.com/legali/transaction-service/internal/queue"
)

const (
	dequeueTimeout = 1 * time.Second
	errorBackoff   = 1 * time.Second
)

// Worker is the single logical consumer of the job queue. It simulates the
// processing of pending transactions, transitions their status and publishes
// the result on the event bus.
type Worker struct {
	queue           queue.Queue
	svc             *Service
	bus             *events.Bus
	log             *logrus.Logger
	failProbability float64
	simulateWork    time.Duration

	// rnd is the injected random source for the outcome draw; the worker is
	// its only user, so an unsynchronized source is fine.
	rnd *rand.Rand
	now func() time.Time
}

// NewWorker initializes a worker. failProbability is the chance in [0,1] that
// a processed job ends in the failed status.
func NewWorker(q queue.Queue, svc *Service, bus *events.Bus, log *logrus.Logger, failProbability float64, simulateWork time.Duration, rnd *rand.Rand) *Worker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Worker{
		queue:           q,
		svc:             svc,
		bus:             bus,
		log:             log,
		failProbability: failProbability,
		simulateWork:    simulateWork,
		rnd:             rnd,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes jobs until the context is cancelled. A failing job is logged,
// dropped and followed by a short back-off; it never terminates the loop.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return
		}

		job, ok := w.queue.Dequeue(ctx, dequeueTimeout)
		if !ok {
			continue
		}

		w.log.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"job_type": job.Type,
		}).Info("worker job received")

		if err := w.handle(ctx, job); err != nil {
			w.log.WithFields(logrus.Fields{
				"job_id": job.ID,
				"error":  err,
			}).Error("worker job failed")
			w.sleep(ctx, errorBackoff)
		}
	}
}

// handle dispatches one job by type. Panics are contained so a single bad job
// cannot take down the loop.
func (w *Worker) handle(ctx context.Context, job models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic while processing job")
			w.log.WithFields(logrus.Fields{
				"job_id": job.ID,
				"panic":  r,
			}).Error("worker recovered from panic")
		}
	}()

	switch job.Type {
	case models.JobProcessTransaction:
		return w.processTransaction(ctx, job)
	default:
		w.log.WithField("job_type", job.Type).Warn("worker received unknown job type")
		return nil
	}
}

func (w *Worker) processTransaction(ctx context.Context, job models.Job) error {
	id, err := uuid.Parse(job.Payload["transaction_id"])
	if err != nil {
		// Malformed payload: drop the job, keep the loop alive.
		w.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"error":  err,
		}).Error("worker dropped job with malformed transaction id")
		return nil
	}

	log := w.log.WithFields(logrus.Fields{
		"transaction_id": id,
		"job_id":         job.ID,
	})

	tx, err := w.svc.Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Error("worker transaction not found, dropping job")
			return nil
		}
		return err
	}

	log.WithField("old_status", tx.Status).Info("worker processing started")

	start := time.Now()
	if !w.sleep(ctx, w.simulateWork) {
		// Shutting down before any mutation: abandon the job cleanly.
		return nil
	}
	durationMs := time.Since(start).Milliseconds()

	newStatus := models.StatusProcessed
	if w.rnd.Float64() < w.failProbability {
		newStatus = models.StatusFailed
	}

	updated, oldStatus, err := w.svc.ChangeStatus(id, newStatus)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Error("worker transaction vanished before transition, dropping job")
			return nil
		}
		return err
	}

	w.bus.Publish(models.EventTransactionStatusChanged, map[string]any{
		"transaction_id": updated.ID.String(),
		"old_status":     string(oldStatus),
		"new_status":     string(updated.Status),
		"timestamp":      w.now().Format(time.RFC3339Nano),
		"duration_ms":    durationMs,
		"job_id":         job.ID,
	})

	log.WithFields(logrus.Fields{
		"old_status":  oldStatus,
		"new_status":  updated.Status,
		"duration_ms": durationMs,
	}).Info(models.EventTransactionStatusChanged)

	return nil
}

// sleep waits for d or until the context is cancelled. Returns false when
// cancelled first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
