package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legali/transaction-service/internal/models"
)

// MemoryTransactionRepository is the in-memory storage backend, used as the
// default persistence mode and in tests.
type MemoryTransactionRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]models.Transaction
}

// NewMemoryTransactionRepository initializes an empty in-memory repository.
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{items: make(map[uuid.UUID]models.Transaction)}
}

// Add persists a new transaction.
func (r *MemoryTransactionRepository) Add(tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[tx.ID] = tx
	return nil
}

// Get returns the transaction or models.ErrNotFound.
func (r *MemoryTransactionRepository) Get(id uuid.UUID) (models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.items[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	return tx, nil
}

// UpdateStatus overwrites the status of an existing transaction.
func (r *MemoryTransactionRepository) UpdateStatus(id uuid.UUID, status models.TransactionStatus, now time.Time) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.items[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	updated := tx.WithStatus(status, now)
	r.items[id] = updated
	return updated, nil
}

// List returns transactions ordered by created_at descending.
func (r *MemoryTransactionRepository) List(limit, offset int) ([]models.Transaction, error) {
	r.mu.RLock()
	txs := make([]models.Transaction, 0, len(r.items))
	for _, tx := range r.items {
		txs = append(txs, tx)
	}
	r.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})

	if offset >= len(txs) {
		return []models.Transaction{}, nil
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end], nil
}

// MemoryIdempotencyStore maps idempotency keys to transaction ids.
type MemoryIdempotencyStore struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryIdempotencyStore initializes an empty idempotency store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{items: make(map[string]string)}
}

// Get returns the transaction id recorded under the key, if any.
func (s *MemoryIdempotencyStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.items[key]
	return id, ok, nil
}

// Put records the mapping unless the key already exists (first-write-wins).
func (s *MemoryIdempotencyStore) Put(key, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; exists {
		return nil
	}
	s.items[key] = transactionID
	return nil
}

// MemorySummaryRepository stores summaries in process memory.
type MemorySummaryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]models.Summary
}

// NewMemorySummaryRepository initializes an empty summary repository.
func NewMemorySummaryRepository() *MemorySummaryRepository {
	return &MemorySummaryRepository{items: make(map[uuid.UUID]models.Summary)}
}

// Add persists a summary.
func (r *MemorySummaryRepository) Add(s models.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	return nil
}

// Get returns the summary or models.ErrNotFound.
func (r *MemorySummaryRepository) Get(id uuid.UUID) (models.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return models.Summary{}, models.ErrNotFound
	}
	return s, nil
}
