// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/secret"
)

// Default password length policy. A product decision, not a cryptographic
// one; override through PasswordPolicy when constructing the service.
const (
	DefaultMinPasswordLength = 12
	DefaultMaxPasswordLength = 128
)

// PasswordPolicy bounds accepted new-password lengths, inclusive.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy returns the 12-128 inclusive policy.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: DefaultMinPasswordLength,
		MaxLength: DefaultMaxPasswordLength,
	}
}

// Check validates a candidate password against the policy.
func (p PasswordPolicy) Check(password secret.String) error {
	if n := password.Len(); n < p.MinLength || n > p.MaxLength {
		return oops.Code("AUTH_PASSWORD_LENGTH").
			With("min", p.MinLength).
			With("max", p.MaxLength).
			Errorf("new passwords must be between %d and %d characters", p.MinLength, p.MaxLength)
	}
	return nil
}

// PasswordService handles authenticated password changes.
type PasswordService struct {
	creds     CredentialRepository
	validator *CredentialValidator
	hasher    Hasher
	policy    PasswordPolicy
}

// NewPasswordService creates a new PasswordService.
func NewPasswordService(creds CredentialRepository, validator *CredentialValidator, hasher Hasher, policy PasswordPolicy) *PasswordService {
	return &PasswordService{
		creds:     creds,
		validator: validator,
		hasher:    hasher,
		policy:    policy,
	}
}

// ChangePassword overwrites the stored hash for an authenticated user.
// The caller resolves userID through SessionGuard.RequireUser first; the
// current password is re-validated here as a defense against hijacked
// sessions. Length violations, mismatched new-password entries, and a
// wrong current password are typed, non-fatal failures; store and hashing
// faults are coded unexpected errors.
func (s *PasswordService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, newPasswordCheck secret.String) error {
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}

	// secret.String does not derive equality; the two entries are
	// compared through the explicit constant-time path.
	if !newPassword.Equals(newPasswordCheck) {
		return ErrPasswordMismatch
	}

	username, err := s.creds.GetUsername(ctx, userID)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get username").
			Wrap(err)
	}

	if _, err := s.validator.Validate(ctx, Credentials{Username: username, Password: current}); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "validate current password").
			Wrap(err)
	}

	newHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.creds.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password hash").
			Wrap(err)
	}

	return nil
}
