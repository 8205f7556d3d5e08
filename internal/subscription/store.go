// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrTokenCollision is returned by Tx.InsertToken when the generated token
// already exists. The workflow treats it as retryable: regenerate once,
// then surface a server error.
var ErrTokenCollision = errors.New("subscription token already exists")

// Tx is one store transaction covering a subscriber and its token.
// The two inserts commit together or not at all.
type Tx interface {
	// InsertSubscriber stores a new subscriber row.
	InsertSubscriber(ctx context.Context, subscriber *Subscriber) error

	// InsertToken binds a confirmation token to a subscriber id.
	// Returns ErrTokenCollision when the token is already taken.
	InsertToken(ctx context.Context, token string, subscriberID uuid.UUID) error

	// Commit makes the transaction durable.
	Commit(ctx context.Context) error

	// Rollback discards the transaction. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}

// Store manages subscriber persistence.
type Store interface {
	// Begin opens a transaction.
	Begin(ctx context.Context) (Tx, error)

	// GetSubscriberIDByToken resolves a confirmation token to the
	// subscriber it authorizes. Returns ErrNotFound for unknown tokens.
	GetSubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error)

	// ConfirmSubscriber marks a subscriber confirmed. Confirming an
	// already-confirmed subscriber is a no-op, not an error.
	ConfirmSubscriber(ctx context.Context, subscriberID uuid.UUID) error

	// GetConfirmedSubscriberEmails lists the email addresses of every
	// confirmed subscriber, as stored. Rows predating the current
	// validation rules may carry addresses ParseEmail rejects.
	GetConfirmedSubscriberEmails(ctx context.Context) ([]string, error)
}
