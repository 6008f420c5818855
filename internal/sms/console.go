package sms

import (
	"context"
	"log/slog"
)

// Console is the fallback Sender used when no Twilio credentials are
// configured. It logs the message instead of delivering it, which is
// what you want during local development.
type Console struct {
	logger *slog.Logger
}

// NewConsole creates a console sender.
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Name() string { return "console" }

// Send implements Sender by logging the would-be message. It never
// fails.
func (c *Console) Send(ctx context.Context, to, body string) error {
	c.logger.Info("sms delivery not configured, printing message",
		"to", to,
		"body", body,
	)
	return nil
}
