package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legali/transaction-service/internal/models"
)

func newTx(createdAt time.Time) models.Transaction {
	return models.NewTransaction(uuid.New(), decimal.NewFromInt(10), models.TypeCredit, createdAt)
}

func TestMemoryRepositoryAddGet(t *testing.T) {
	repo := NewMemoryTransactionRepository()
	tx := newTx(time.Now().UTC())

	require.NoError(t, repo.Add(tx))

	got, err := repo.Get(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestMemoryRepositoryGetUnknown(t *testing.T) {
	repo := NewMemoryTransactionRepository()

	_, err := repo.Get(uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepositoryUpdateStatus(t *testing.T) {
	repo := NewMemoryTransactionRepository()
	created := time.Now().UTC()
	tx := newTx(created)
	require.NoError(t, repo.Add(tx))

	later := created.Add(time.Second)
	updated, err := repo.UpdateStatus(tx.ID, models.StatusProcessed, later)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, updated.Status)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	_, err = repo.UpdateStatus(uuid.New(), models.StatusFailed, later)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepositoryListOrdering(t *testing.T) {
	repo := NewMemoryTransactionRepository()
	base := time.Now().UTC()

	oldest := newTx(base)
	middle := newTx(base.Add(time.Second))
	newest := newTx(base.Add(2 * time.Second))
	for _, tx := range []models.Transaction{middle, oldest, newest} {
		require.NoError(t, repo.Add(tx))
	}

	txs, err := repo.List(10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, newest.ID, txs[0].ID)
	assert.Equal(t, middle.ID, txs[1].ID)
	assert.Equal(t, oldest.ID, txs[2].ID)

	// Pagination.
	page, err := repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, middle.ID, page[0].ID)

	empty, err := repo.List(10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryIdempotencyStoreFirstWriteWins(t *testing.T) {
	store := NewMemoryIdempotencyStore()

	require.NoError(t, store.Put("key-1", "tx-a"))
	require.NoError(t, store.Put("key-1", "tx-b"))

	id, ok, err := store.Get("key-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tx-a", id)

	_, ok, err = store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIdempotencyStoreConcurrentPut(t *testing.T) {
	store := NewMemoryIdempotencyStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Put("shared", uuid.New().String())
		}(i)
	}
	wg.Wait()

	first, ok, err := store.Get("shared")
	require.NoError(t, err)
	require.True(t, ok)

	// Whatever won stays stable afterwards.
	require.NoError(t, store.Put("shared", "late"))
	again, _, _ := store.Get("shared")
	assert.Equal(t, first, again)
}
