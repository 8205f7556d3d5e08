// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package postgres implements auth.CredentialRepository using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository uses; pgxmock
// satisfies it too.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ poolIface = (*pgxpool.Pool)(nil)

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	pool poolIface
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(pool poolIface) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// GetByUsername retrieves a stored credential by username.
func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*auth.StoredCredential, error) {
	var (
		idStr        string
		passwordHash string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, password_hash FROM users
		WHERE username = $1
	`, username).Scan(&idStr, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by username").
			Wrap(err)
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_CORRUPT_ID").
			With("operation", "parse user id").
			Wrap(err)
	}

	return &auth.StoredCredential{
		UserID:       userID,
		Username:     username,
		PasswordHash: passwordHash,
	}, nil
}

// GetUsername retrieves the username for a user id.
func (r *CredentialRepository) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := r.pool.QueryRow(ctx, `
		SELECT username FROM users
		WHERE id = $1
	`, userID.String()).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", oops.Code("CREDENTIAL_GET_USERNAME_FAILED").
			With("operation", "get username by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return username, nil
}

// UpdatePasswordHash overwrites the stored password hash for a user.
func (r *CredentialRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1
		WHERE id = $2
	`, passwordHash, userID.String())
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "update password hash").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}
