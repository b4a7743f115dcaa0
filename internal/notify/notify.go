// Package notify delivers notifications to devotees over external channels.
package notify

import (
	"context"
	"log/slog"
)

// Message is one outbound notification.
type Message struct {
	Channel   string            `json:"channel"` // "email" or "sms"
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs outbound messages. Used in development and tests.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("notification_send",
		"channel", msg.Channel,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
	)
	return nil
}
