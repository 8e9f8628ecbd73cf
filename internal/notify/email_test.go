package notify

import (
	"errors"
	"io"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier() *EmailNotifier {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEmailNotifier("smtp.example.com", "587", "user", "pass", "svc@example.com", "ops@example.com", log)
}

func TestEmailNotifierSendsOnStatusChange(t *testing.T) {
	n := newTestNotifier()

	var sent []*email.Email
	n.send = func(e *email.Email) error {
		sent = append(sent, e)
		return nil
	}

	n.Handler()("transaction.status_changed", map[string]any{
		"transaction_id": "t1",
		"old_status":     "pending",
		"new_status":     "processed",
	})

	require.Len(t, sent, 1)
	assert.Equal(t, "svc@example.com", sent[0].From)
	assert.Equal(t, []string{"ops@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "t1")
	assert.Contains(t, sent[0].Subject, "processed")
	assert.Contains(t, string(sent[0].Text), "pending")
}

func TestEmailNotifierSendFailureDoesNotPanic(t *testing.T) {
	n := newTestNotifier()
	n.send = func(*email.Email) error { return errors.New("smtp down") }

	assert.NotPanics(t, func() {
		n.Handler()("transaction.status_changed", map[string]any{"transaction_id": "t1"})
	})
}
