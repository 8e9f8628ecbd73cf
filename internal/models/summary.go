package models

import (
	"time"

	"github.com/google/uuid"
)

// Summary is a stored text summarization result.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSummary builds a summary entity stamped with the given time.
func NewSummary(text, summary, model, requestID string, now time.Time) Summary {
	return Summary{
		ID:        uuid.New(),
		Text:      text,
		Summary:   summary,
		Model:     model,
		RequestID: requestID,
		CreatedAt: now,
	}
}
