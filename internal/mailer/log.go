package mailer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"audit-backend/internal/shared/telemetry"
)

// LogMailer records sends to the log instead of delivering. Used in local
// development and as the fallback when no provider is configured.
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
}

// NewLog returns a LogMailer.
func NewLog() *LogMailer { return &LogMailer{} }

// Send logs the message and returns a synthetic id.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	telemetry.Info("mailer.sent", map[string]any{
		"provider": "log",
		"to":       msg.To,
		"subject":  msg.Subject,
	})
	return "log-" + uuid.NewString(), nil
}

// Sent returns a copy of everything sent so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
