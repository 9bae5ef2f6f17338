package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/mailer"
)

// MockSender is a sender implementation that logs messages and always
// succeeds. It records sent messages so tests can inspect them.
type MockSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []mailer.Message
}

// NewMockSender creates a new mock sender.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

// Name returns the name of this sender.
func (s *MockSender) Name() string {
	return "mock"
}

// Send logs the message and records it.
func (s *MockSender) Send(ctx context.Context, msg *mailer.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "mock sender: mail sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}

// Sent returns a copy of all messages sent so far.
func (s *MockSender) Sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.sent))
	copy(out, s.sent)
	return out
}
