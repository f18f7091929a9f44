// Package mailer sends outbound transactional email through the hosted mail
// provider's HTTP API.
package mailer

import (
	"context"
	"log/slog"
)

// Message is one outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer dispatches a single message. Implementations must not retry; retry
// policy belongs to the caller (in practice, the visitor's browser).
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Log is a Mailer that only logs, for development without provider credentials.
type Log struct {
	Logger *slog.Logger
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	l.Logger.InfoContext(ctx, "mail send skipped, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
