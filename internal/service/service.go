package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/events"
	"github.com/legali/transaction-service/internal/models"
	"github.com/legali/transaction-service/internal/queue"
	"github.com/legali/transaction-service/internal/repository"
)

// Default pagination bounds for listing.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// How long a losing creator waits for the winning transaction to become
// visible before giving up. If the winner has not persisted within this
// bound (about 100ms), the loser persists its own transaction and the key
// ends up covering two rows. Raise the bound before relaxing the store's
// visibility guarantees.
const (
	raceLookupAttempts = 50
	raceLookupDelay    = 2 * time.Millisecond
)

// Service owns the transaction lifecycle: idempotent creation, status
// transitions and hand-off to the async processing queue. It is the sole
// mutator of transaction state.
type Service struct {
	txRepo     repository.TransactionRepository
	idem       repository.IdempotencyStore
	queue      queue.Queue
	bus        *events.Bus
	log        *logrus.Logger
	requireKey bool

	// now is the injected clock; tests substitute it for determinism.
	now func() time.Time
}

// NewService initializes a new lifecycle service.
func NewService(txRepo repository.TransactionRepository, idem repository.IdempotencyStore, q queue.Queue, bus *events.Bus, log *logrus.Logger, requireKey bool) *Service {
	return &Service{
		txRepo:     txRepo,
		idem:       idem,
		queue:      q,
		bus:        bus,
		log:        log,
		requireKey: requireKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and persists a new pending transaction, honoring the
// idempotency key when supplied: a replayed key returns the original
// transaction without creating a new one or emitting a created event. The
// boolean result reports whether the call was such a replay.
func (s *Service) Create(userID uuid.UUID, amount decimal.Decimal, typ models.TransactionType, idempotencyKey string) (models.Transaction, bool, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, false, models.NewValidationError("amount", "must be greater than zero")
	}
	if idempotencyKey == "" && s.requireKey {
		return models.Transaction{}, false, models.NewValidationError("idempotency_key", "required")
	}

	if idempotencyKey != "" {
		existingID, ok, err := s.idem.Get(idempotencyKey)
		if err != nil {
			return models.Transaction{}, false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if ok {
			tx, err := s.lookupByRawID(existingID)
			if err == nil {
				return tx, true, nil
			}
			// Record exists but the transaction is not visible; fall through
			// and create a fresh one rather than failing the request.
		}
	}

	tx := models.NewTransaction(userID, amount, typ, s.now())

	if idempotencyKey != "" {
		// Reserve the key before persisting so that two concurrent creates
		// under one key persist exactly one transaction.
		if err := s.idem.Put(idempotencyKey, tx.ID.String()); err != nil {
			return models.Transaction{}, false, fmt.Errorf("idempotency put: %w", err)
		}
		winnerID, ok, err := s.idem.Get(idempotencyKey)
		if err != nil {
			return models.Transaction{}, false, fmt.Errorf("idempotency re-read: %w", err)
		}
		if ok && winnerID != tx.ID.String() {
			// Lost the race: observe the winner's transaction instead.
			winner, err := s.awaitTransaction(winnerID)
			if err == nil {
				return winner, true, nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return models.Transaction{}, false, fmt.Errorf("replay lookup: %w", err)
			}
			// The key points at a transaction that never became visible
			// (a failed earlier create). Proceed with this one.
		}
	}

	if err := s.txRepo.Add(tx); err != nil {
		return models.Transaction{}, false, fmt.Errorf("persist transaction: %w", err)
	}

	evt := models.TransactionCreated(tx, s.now())
	s.bus.Publish(evt.Name, evt.Payload)
	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"amount":         tx.Amount.String(),
		"type":           tx.Type,
	}).Info(evt.Name)

	return tx, false, nil
}

// Get returns a transaction by id.
func (s *Service) Get(id uuid.UUID) (models.Transaction, error) {
	return s.txRepo.Get(id)
}

// Publish forwards a domain event to the bus. Callers that complete a status
// transition publish through here once persistence has succeeded.
func (s *Service) Publish(evt models.DomainEvent) {
	s.bus.Publish(evt.Name, evt.Payload)
}

// List returns transactions ordered by created_at descending.
func (s *Service) List(limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.txRepo.List(limit, offset)
}

// ChangeStatus overwrites the status of an existing transaction and returns
// the updated transaction along with the previous status. Publication of the
// status_changed event is the caller's responsibility, so that publish
// failures never roll back persistence.
func (s *Service) ChangeStatus(id uuid.UUID, status models.TransactionStatus) (models.Transaction, models.TransactionStatus, error) {
	existing, err := s.txRepo.Get(id)
	if err != nil {
		return models.Transaction{}, "", err
	}

	updated, err := s.txRepo.UpdateStatus(id, status, s.now())
	if err != nil {
		return models.Transaction{}, "", err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": updated.ID,
		"old_status":     existing.Status,
		"new_status":     updated.Status,
	}).Info("transaction status updated")

	return updated, existing.Status, nil
}

// EnqueueProcessing verifies the transaction exists and hands it to the job
// queue. Returns the job id.
func (s *Service) EnqueueProcessing(id uuid.UUID) (string, error) {
	if _, err := s.txRepo.Get(id); err != nil {
		return "", err
	}

	jobID := s.queue.Enqueue(models.JobProcessTransaction, map[string]string{
		"transaction_id": id.String(),
	})

	s.bus.Publish(models.EventTransactionEnqueued, map[string]any{
		"transaction_id": id.String(),
		"job_id":         jobID,
	})
	s.log.WithFields(logrus.Fields{
		"transaction_id": id,
		"job_id":         jobID,
	}).Info(models.EventTransactionEnqueued)

	return jobID, nil
}

func (s *Service) lookupByRawID(raw string) (models.Transaction, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("malformed stored transaction id %q: %w", raw, err)
	}
	return s.txRepo.Get(id)
}

// awaitTransaction polls briefly for a transaction that a concurrent winner
// may not have finished persisting yet.
func (s *Service) awaitTransaction(raw string) (models.Transaction, error) {
	var lastErr error
	for i := 0; i < raceLookupAttempts; i++ {
		tx, err := s.lookupByRawID(raw)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return models.Transaction{}, err
		}
		lastErr = err
		time.Sleep(raceLookupDelay)
	}
	return models.Transaction{}, lastErr
}
