// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when a username does not exist, so
// "unknown user" and "wrong password" cost the same amount of work and an
// observer cannot tell them apart from latency. Do not short-circuit on a
// missing username.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialValidator orchestrates credential lookup and password
// verification, returning an authenticated user id or a uniform failure.
type CredentialValidator struct {
	creds  CredentialRepository
	hasher Hasher
}

// NewCredentialValidator creates a new CredentialValidator.
func NewCredentialValidator(creds CredentialRepository, hasher Hasher) *CredentialValidator {
	return &CredentialValidator{
		creds:  creds,
		hasher: hasher,
	}
}

// Validate checks a login attempt and returns the matching user id.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials;
// store or hashing faults yield coded unexpected errors that the boundary
// must not render as "wrong password".
func (v *CredentialValidator) Validate(ctx context.Context, credentials Credentials) (uuid.UUID, error) {
	stored, lookupErr := v.creds.GetByUsername(ctx, credentials.Username)

	// Pick the hash to verify against: the real one, or the dummy so the
	// work done is identical when the user does not exist.
	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return uuid.Nil, oops.Code("AUTH_VALIDATE_FAILED").
				With("operation", "get credential by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = stored.PasswordHash
		userExists = true
	}

	valid, verifyErr := v.hasher.Verify(ctx, credentials.Password, targetHash)
	if verifyErr != nil {
		// The dummy hash carries a digest that decodes fine, so a verify
		// error against it only means the attempt was doomed anyway.
		if !userExists {
			return uuid.Nil, ErrInvalidCredentials
		}
		return uuid.Nil, oops.Code("AUTH_VALIDATE_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return uuid.Nil, ErrInvalidCredentials
	}

	return stored.UserID, nil
}
