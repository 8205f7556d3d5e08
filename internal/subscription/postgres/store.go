// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package postgres implements subscription.Store using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/subscription"
)

// poolIface is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it too.
type poolIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Static check that the production pool satisfies the interface.
var _ poolIface = (*pgxpool.Pool)(nil)

// Store implements subscription.Store backed by PostgreSQL.
type Store struct {
	pool poolIface
}

// NewStore creates a Store over a connection pool.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Begin opens a transaction.
func (s *Store) Begin(ctx context.Context) (subscription.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, oops.Code("SUBSCRIPTION_TX_BEGIN_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	return &storeTx{tx: tx}, nil
}

// storeTx implements subscription.Tx over a pgx transaction.
type storeTx struct {
	tx pgx.Tx
}

// InsertSubscriber stores a new subscriber row with its pending status.
func (t *storeTx) InsertSubscriber(ctx context.Context, subscriber *subscription.Subscriber) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`,
		subscriber.ID.String(),
		subscriber.Email.String(),
		subscriber.Name.String(),
		subscriber.SubscribedAt,
		string(subscriber.Status),
	)
	if err != nil {
		return oops.Code("SUBSCRIBER_INSERT_FAILED").
			With("operation", "insert subscriber").
			Wrap(err)
	}
	return nil
}

// InsertToken binds a confirmation token to a subscriber inside the same
// transaction. A unique violation on the token column maps to
// subscription.ErrTokenCollision so the workflow can regenerate and retry.
func (t *storeTx) InsertToken(ctx context.Context, token string, subscriberID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`, token, subscriberID.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return subscription.ErrTokenCollision
		}
		return oops.Code("SUBSCRIPTION_TOKEN_INSERT_FAILED").
			With("operation", "insert token").
			Wrap(err)
	}
	return nil
}

// Commit makes the transaction durable.
func (t *storeTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return oops.Code("SUBSCRIPTION_TX_COMMIT_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// Rollback discards the transaction. pgx reports ErrTxClosed after a
// commit; that is the documented no-op case, not a failure.
func (t *storeTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return oops.Code("SUBSCRIPTION_TX_ROLLBACK_FAILED").
			With("operation", "rollback transaction").
			Wrap(err)
	}
	return nil
}

// GetSubscriberIDByToken resolves a confirmation token to its subscriber.
func (s *Store) GetSubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	var idStr string
	err := s.pool.QueryRow(ctx, `
		SELECT subscriber_id FROM subscription_tokens
		WHERE subscription_token = $1
	`, token).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, subscription.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, oops.Code("SUBSCRIPTION_TOKEN_LOOKUP_FAILED").
			With("operation", "get subscriber by token").
			Wrap(err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, oops.Code("SUBSCRIPTION_CORRUPT_ID").
			With("operation", "parse subscriber id").
			Wrap(err)
	}
	return id, nil
}

// GetConfirmedSubscriberEmails lists the stored email of every confirmed
// subscriber.
func (s *Store) GetConfirmedSubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email FROM subscriptions
		WHERE status = 'confirmed'
	`)
	if err != nil {
		return nil, oops.Code("SUBSCRIBER_LIST_FAILED").
			With("operation", "list confirmed subscribers").
			Wrap(err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, oops.Code("SUBSCRIBER_SCAN_FAILED").
				With("operation", "scan confirmed subscriber row").
				Wrap(err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SUBSCRIBER_ROWS_ERROR").
			With("operation", "iterate confirmed subscriber rows").
			Wrap(err)
	}

	return emails, nil
}

// ConfirmSubscriber marks a subscriber confirmed. The update is idempotent:
// confirming an already-confirmed row touches nothing and still succeeds.
func (s *Store) ConfirmSubscriber(ctx context.Context, subscriberID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET status = 'confirmed'
		WHERE id = $1
	`, subscriberID.String())
	if err != nil {
		return oops.Code("SUBSCRIBER_CONFIRM_FAILED").
			With("operation", "set subscriber confirmed").
			With("subscriber_id", subscriberID.String()).
			Wrap(err)
	}
	return nil
}
