// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package email provides the outbound email transport for Lettermill.
//
// The core workflows depend only on the Sender interface; the Postmark
// implementation talks to the real provider and DevSender logs instead of
// sending, for local development and tests.
package email

import (
	"context"
	"regexp"

	"github.com/samber/oops"
)

// Sender delivers a single transactional email with both HTML and plain
// text bodies. Implementations must return an error whenever the transport
// did not accept the message; the subscription workflow relies on that to
// roll back its transaction.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// emailRegex is a simple shape check for recipient addresses.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validRecipient checks if the provided string looks like an email address.
func validRecipient(to string) error {
	if !emailRegex.MatchString(to) {
		return oops.Code("EMAIL_INVALID_RECIPIENT").Errorf("invalid recipient address")
	}
	return nil
}
