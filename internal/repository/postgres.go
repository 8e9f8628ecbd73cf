package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/legali/transaction-service/internal/models"
)

// PostgresRepository provides transaction persistence on Postgres. Every call
// is a single autocommitted statement; no long-lived transactions are held.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a Postgres-backed repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InitPostgresSchema creates the tables if they do not exist yet.
func InitPostgresSchema(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			amount NUMERIC(18,2) NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS idempotency_keys (
			key TEXT PRIMARY KEY,
			transaction_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// Add persists a new transaction.
func (r *PostgresRepository) Add(tx models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(query,
		tx.ID, tx.UserID, tx.Amount.String(), string(tx.Type), string(tx.Status), tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Get retrieves a transaction by id.
func (r *PostgresRepository) Get(id uuid.UUID) (models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, status, created_at, updated_at
		FROM transactions
		WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// UpdateStatus overwrites the status of an existing transaction.
func (r *PostgresRepository) UpdateStatus(id uuid.UUID, status models.TransactionStatus, now time.Time) (models.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, user_id, amount, type, status, created_at, updated_at`
	tx, err := scanTransaction(r.db.QueryRow(query, id, string(status), now))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to update status: %w", err)
	}
	return tx, nil
}

// List returns transactions ordered by created_at descending.
func (r *PostgresRepository) List(limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, status, created_at, updated_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx     models.Transaction
		amount string
		typ    string
		status string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &amount, &typ, &status, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return models.Transaction{}, err
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	tx.Amount = dec
	tx.Type = models.TransactionType(typ)
	tx.Status = models.TransactionStatus(status)
	return tx, nil
}

// PostgresIdempotencyStore persists idempotency keys on Postgres.
type PostgresIdempotencyStore struct {
	db *sql.DB
}

// NewPostgresIdempotencyStore initializes a Postgres-backed idempotency store.
func NewPostgresIdempotencyStore(db *sql.DB) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

// Get returns the transaction id recorded under the key, if any.
func (s *PostgresIdempotencyStore) Get(key string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT transaction_id FROM idempotency_keys WHERE key = $1`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return id, true, nil
}

// Put records the mapping; a concurrent first writer wins and the insert is
// silently skipped.
func (s *PostgresIdempotencyStore) Put(key, transactionID string) error {
	query := `
		INSERT INTO idempotency_keys (key, transaction_id)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`
	if _, err := s.db.Exec(query, key, transactionID); err != nil {
		return fmt.Errorf("failed to put idempotency key: %w", err)
	}
	return nil
}
