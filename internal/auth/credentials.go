// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/secret"
)

// Credentials is a single login attempt. It is transient: the password
// stays wrapped in secret.String and the value is never persisted as-is.
type Credentials struct {
	Username string
	Password secret.String
}

// StoredCredential is the persisted identity record for a user.
// PasswordHash is a PHC-formatted argon2id hash string, never the
// plaintext nor anything derivable back to it.
type StoredCredential struct {
	UserID       uuid.UUID
	Username     string
	PasswordHash string
}

// CredentialRepository manages stored credential persistence.
type CredentialRepository interface {
	// GetByUsername retrieves a stored credential by username.
	// Returns ErrNotFound if no user has the given username.
	GetByUsername(ctx context.Context, username string) (*StoredCredential, error)

	// GetUsername retrieves the username for a user id.
	// Returns ErrNotFound if the user does not exist.
	GetUsername(ctx context.Context, userID uuid.UUID) (string, error)

	// UpdatePasswordHash overwrites the stored password hash for a user.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error
}
