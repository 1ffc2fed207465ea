// Package mailer delivers notification email. Delivery is always
// best-effort from the caller's point of view; a failed send never fails
// the run that triggered it.
package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a message and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}
