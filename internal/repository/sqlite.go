package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/legali/transaction-service/internal/models"
)

// transactionRow is the gorm mapping for stored transactions.
type transactionRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string
	Amount    string
	Type      string
	Status    string
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (transactionRow) TableName() string { return "transactions" }

// idempotencyRow is the gorm mapping for idempotency keys.
type idempotencyRow struct {
	Key           string `gorm:"primaryKey"`
	TransactionID string
	CreatedAt     time.Time
}

func (idempotencyRow) TableName() string { return "idempotency_keys" }

// OpenSqlite opens (or creates) the SQLite database at path and migrates the
// schema.
func OpenSqlite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&transactionRow{}, &idempotencyRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// SqliteRepository provides transaction persistence on SQLite via gorm.
type SqliteRepository struct {
	db *gorm.DB
}

// NewSqliteRepository initializes a SQLite-backed repository.
func NewSqliteRepository(db *gorm.DB) *SqliteRepository {
	return &SqliteRepository{db: db}
}

// Add persists a new transaction.
func (r *SqliteRepository) Add(tx models.Transaction) error {
	row := toRow(tx)
	if err := r.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Get retrieves a transaction by id.
func (r *SqliteRepository) Get(id uuid.UUID) (models.Transaction, error) {
	var row transactionRow
	err := r.db.First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return fromRow(row)
}

// UpdateStatus overwrites the status of an existing transaction.
func (r *SqliteRepository) UpdateStatus(id uuid.UUID, status models.TransactionStatus, now time.Time) (models.Transaction, error) {
	res := r.db.Model(&transactionRow{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{"status": string(status), "updated_at": now})
	if res.Error != nil {
		return models.Transaction{}, fmt.Errorf("failed to update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Transaction{}, models.ErrNotFound
	}
	return r.Get(id)
}

// List returns transactions ordered by created_at descending.
func (r *SqliteRepository) List(limit, offset int) ([]models.Transaction, error) {
	var rows []transactionRow
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func toRow(tx models.Transaction) transactionRow {
	return transactionRow{
		ID:        tx.ID.String(),
		UserID:    tx.UserID.String(),
		Amount:    tx.Amount.String(),
		Type:      string(tx.Type),
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

func fromRow(row transactionRow) (models.Transaction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid stored id %q: %w", row.ID, err)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid stored user id %q: %w", row.UserID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid stored amount %q: %w", row.Amount, err)
	}
	return models.Transaction{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		Type:      models.TransactionType(row.Type),
		Status:    models.TransactionStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// SqliteIdempotencyStore persists idempotency keys on SQLite.
type SqliteIdempotencyStore struct {
	db *gorm.DB
}

// NewSqliteIdempotencyStore initializes a SQLite-backed idempotency store.
func NewSqliteIdempotencyStore(db *gorm.DB) *SqliteIdempotencyStore {
	return &SqliteIdempotencyStore{db: db}
}

// Get returns the transaction id recorded under the key, if any.
func (s *SqliteIdempotencyStore) Get(key string) (string, bool, error) {
	var row idempotencyRow
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return row.TransactionID, true, nil
}

// Put records the mapping; an existing key is left untouched.
func (s *SqliteIdempotencyStore) Put(key, transactionID string) error {
	row := idempotencyRow{Key: key, TransactionID: transactionID, CreatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to put idempotency key: %w", err)
	}
	return nil
}
