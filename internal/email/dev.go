// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package email

import (
	"context"
	"log/slog"
)

// DevSender is a Sender for local development: it logs the message instead
// of delivering it. Bodies are logged in full so confirmation links can be
// followed by hand.
type DevSender struct {
	logger *slog.Logger
}

// NewDevSender creates a logging sender.
func NewDevSender(logger *slog.Logger) *DevSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevSender{logger: logger}
}

// Send logs the message and reports success.
func (s *DevSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := validRecipient(to); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dev email sender: message not delivered",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("text_body", textBody),
		slog.Int("html_bytes", len(htmlBody)),
	)
	return nil
}
