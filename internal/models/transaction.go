package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// ParseTransactionType validates a raw type string.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case TypeCredit, TypeDebit:
		return TransactionType(s), true
	}
	return "", false
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusProcessed TransactionStatus = "processed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// ParseTransactionStatus validates a raw status string.
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	switch TransactionStatus(s) {
	case StatusPending, StatusProcessed, StatusFailed, StatusCancelled:
		return TransactionStatus(s), true
	}
	return "", false
}

// Transaction represents a financial transaction
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Amount    decimal.Decimal   `json:"amount"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewTransaction builds a pending transaction stamped with the given time.
func NewTransaction(userID uuid.UUID, amount decimal.Decimal, typ TransactionType, now time.Time) Transaction {
	return Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Type:      typ,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithStatus returns a copy of the transaction carrying the new status.
// CreatedAt is preserved; UpdatedAt is bumped to the given time.
func (t Transaction) WithStatus(status TransactionStatus, now time.Time) Transaction {
	t.Status = status
	t.UpdatedAt = now
	return t
}
