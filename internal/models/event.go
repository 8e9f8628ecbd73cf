package models

import "time"

// Event names published on the bus.
const (
	EventTransactionCreated       = "transaction.created"
	EventTransactionStatusChanged = "transaction.status_changed"
	EventTransactionEnqueued      = "transaction.enqueued"
	EventSummaryCreated           = "assistant.summary_created"
)

// DomainEvent is an immutable record of something that happened to a
// transaction, published for decoupled consumers.
type DomainEvent struct {
	Name       string         `json:"name"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// TransactionCreated builds the event emitted once per newly persisted
// transaction. Idempotent replays do not emit it again.
func TransactionCreated(tx Transaction, now time.Time) DomainEvent {
	return DomainEvent{
		Name: EventTransactionCreated,
		Payload: map[string]any{
			"transaction_id": tx.ID.String(),
			"user_id":        tx.UserID.String(),
			"amount":         tx.Amount.String(),
			"type":           string(tx.Type),
			"status":         string(tx.Status),
		},
		OccurredAt: now,
	}
}

// TransactionStatusChanged builds the event emitted after a successful
// status transition.
func TransactionStatusChanged(transactionID string, oldStatus, newStatus TransactionStatus, now time.Time) DomainEvent {
	return DomainEvent{
		Name: EventTransactionStatusChanged,
		Payload: map[string]any{
			"transaction_id": transactionID,
			"old_status":     string(oldStatus),
			"new_status":     string(newStatus),
			"timestamp":      now.Format(time.RFC3339Nano),
		},
		OccurredAt: now,
	}
}
