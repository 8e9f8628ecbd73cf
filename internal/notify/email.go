// Package notify delivers status-change notifications over email. The
// notifier is an event-bus subscriber and is only wired when SMTP is
// configured.
package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/events"
)

// EmailNotifier sends an email for every transaction status change.
type EmailNotifier struct {
	addr string
	auth smtp.Auth
	from string
	to   string
	log  *logrus.Logger

	// send is swapped out in tests.
	send func(e *email.Email) error
}

// NewEmailNotifier initializes a notifier talking to the given SMTP server.
func NewEmailNotifier(host, port, username, password, from, to string, log *logrus.Logger) *EmailNotifier {
	n := &EmailNotifier{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
		to:   to,
		log:  log,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	n.send = func(e *email.Email) error { return e.Send(n.addr, n.auth) }
	return n
}

// Handler returns the bus handler to subscribe for status-change events.
// Delivery failures are logged; the bus isolates them from other consumers.
func (n *EmailNotifier) Handler() events.Handler {
	return func(eventType string, payload map[string]any) {
		txID, _ := payload["transaction_id"].(string)
		oldStatus, _ := payload["old_status"].(string)
		newStatus, _ := payload["new_status"].(string)

		e := email.NewEmail()
		e.From = n.from
		e.To = []string{n.to}
		e.Subject = fmt.Sprintf("Transaction %s is now %s", txID, newStatus)
		e.Text = []byte(fmt.Sprintf(
			"Transaction %s changed status from %s to %s.\n", txID, oldStatus, newStatus))

		if err := n.send(e); err != nil {
			n.log.WithFields(logrus.Fields{
				"transaction_id": txID,
				"error":          err,
			}).Error("email notification failed")
			return
		}
		n.log.WithField("transaction_id", txID).Info("email notification sent")
	}
}
