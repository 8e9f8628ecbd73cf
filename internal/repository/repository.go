package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/legali/transaction-service/internal/models"
)

// TransactionRepository persists and retrieves transactions. Implementations
// must tolerate concurrent calls; the lifecycle service is the sole mutator
// of transaction state.
type TransactionRepository interface {
	// Add persists a new transaction.
	Add(tx models.Transaction) error
	// Get returns the transaction or models.ErrNotFound.
	Get(id uuid.UUID) (models.Transaction, error)
	// UpdateStatus overwrites the status of an existing transaction and bumps
	// updated_at to now. Returns models.ErrNotFound for unknown ids.
	UpdateStatus(id uuid.UUID, status models.TransactionStatus, now time.Time) (models.Transaction, error)
	// List returns transactions ordered by created_at descending.
	List(limit, offset int) ([]models.Transaction, error)
}

// IdempotencyStore maps a client-supplied key to the transaction id created
// under it. Put is first-write-wins: writes to an existing key are no-ops.
type IdempotencyStore interface {
	Get(key string) (string, bool, error)
	Put(key, transactionID string) error
}

// SummaryRepository persists summarization results.
type SummaryRepository interface {
	Add(s models.Summary) error
	Get(id uuid.UUID) (models.Summary, error)
}
