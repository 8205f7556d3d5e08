// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package email

import (
	"context"

	"github.com/mrz1836/postmark"
	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/secret"
)

// PostmarkConfig configures the Postmark-backed sender.
type PostmarkConfig struct {
	ServerToken  secret.String
	AccountToken secret.String
	SenderEmail  string
	ReplyToEmail string
}

// PostmarkSender implements Sender using Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkSender creates a Postmark-backed email sender. All fields are
// required so a misconfigured service fails at startup, not on first send.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken.IsEmpty() {
		return nil, oops.Code("EMAIL_INVALID_CONFIG").Errorf("ServerToken is required")
	}
	if cfg.AccountToken.IsEmpty() {
		return nil, oops.Code("EMAIL_INVALID_CONFIG").Errorf("AccountToken is required")
	}
	if err := validRecipient(cfg.SenderEmail); err != nil {
		return nil, oops.Code("EMAIL_INVALID_CONFIG").Errorf("SenderEmail must be a valid email address")
	}
	if cfg.ReplyToEmail == "" {
		cfg.ReplyToEmail = cfg.SenderEmail
	} else if err := validRecipient(cfg.ReplyToEmail); err != nil {
		return nil, oops.Code("EMAIL_INVALID_CONFIG").Errorf("ReplyToEmail must be a valid email address")
	}

	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken.Reveal(), cfg.AccountToken.Reveal()),
		config: cfg,
	}, nil
}

// Send delivers one email through Postmark. A non-zero provider error code
// counts as a failed send even when the HTTP exchange succeeded.
func (s *PostmarkSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := validRecipient(to); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.config.SenderEmail,
		ReplyTo:  s.config.ReplyToEmail,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return oops.Code("EMAIL_SEND_FAILED").
			With("operation", "postmark send").
			Wrap(err)
	}
	if resp.ErrorCode > 0 {
		return oops.Code("EMAIL_SEND_FAILED").
			With("provider_code", resp.ErrorCode).
			Errorf("postmark rejected the message: %s", resp.Message)
	}
	return nil
}
