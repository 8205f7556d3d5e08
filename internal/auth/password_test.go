// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/secret"
)

func newPasswordService(t *testing.T, repo *mockCredentialRepo) *auth.PasswordService {
	t.Helper()
	pool := auth.NewHashPool(auth.NewArgon2idHasher(), 2)
	validator := auth.NewCredentialValidator(repo, pool)
	return auth.NewPasswordService(repo, validator, pool, auth.DefaultPasswordPolicy())
}

func TestChangePasswordPolicy(t *testing.T) {
	ctx := context.Background()
	current := "the-current-password"

	run := func(t *testing.T, newLen int) error {
		t.Helper()
		repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", current)}
		svc := newPasswordService(t, repo)
		candidate := secret.New(strings.Repeat("p", newLen))
		return svc.ChangePassword(ctx, repo.stored.UserID, secret.New(current), candidate, candidate)
	}

	t.Run("rejects length 11", func(t *testing.T) {
		err := run(t, 11)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "between 12 and 128")
	})

	t.Run("rejects length 129", func(t *testing.T) {
		assert.Error(t, run(t, 129))
	})

	t.Run("accepts length 12", func(t *testing.T) {
		assert.NoError(t, run(t, 12))
	})

	t.Run("accepts length 128", func(t *testing.T) {
		assert.NoError(t, run(t, 128))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites the stored hash", func(t *testing.T) {
		repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", "the-current-password")}
		svc := newPasswordService(t, repo)
		oldHash := repo.stored.PasswordHash

		err := svc.ChangePassword(ctx, repo.stored.UserID,
			secret.New("the-current-password"),
			secret.New("a-brand-new-password"),
			secret.New("a-brand-new-password"))
		require.NoError(t, err)

		assert.NotEqual(t, oldHash, repo.stored.PasswordHash)
		assert.True(t, strings.HasPrefix(repo.stored.PasswordHash, "$argon2id$"))

		// The new password must now validate.
		hasher := auth.NewArgon2idHasher()
		ok, err := hasher.Verify(secret.New("a-brand-new-password"), repo.stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("mismatched entries leave the hash unchanged", func(t *testing.T) {
		repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", "the-current-password")}
		svc := newPasswordService(t, repo)
		oldHash := repo.stored.PasswordHash

		err := svc.ChangePassword(ctx, repo.stored.UserID,
			secret.New("the-current-password"),
			secret.New("a-brand-new-password"),
			secret.New("a-different-password"))
		assert.ErrorIs(t, err, auth.ErrPasswordMismatch)
		assert.Equal(t, oldHash, repo.stored.PasswordHash)
	})

	t.Run("wrong current password is rejected", func(t *testing.T) {
		repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", "the-current-password")}
		svc := newPasswordService(t, repo)
		oldHash := repo.stored.PasswordHash

		err := svc.ChangePassword(ctx, repo.stored.UserID,
			secret.New("not-the-current-password"),
			secret.New("a-brand-new-password"),
			secret.New("a-brand-new-password"))
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, oldHash, repo.stored.PasswordHash)
	})

	t.Run("unknown user id is an unexpected error", func(t *testing.T) {
		repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", "the-current-password")}
		svc := newPasswordService(t, repo)

		other := storedCredential(t, "someone-else", "irrelevant-password")
		err := svc.ChangePassword(ctx, other.UserID,
			secret.New("the-current-password"),
			secret.New("a-brand-new-password"),
			secret.New("a-brand-new-password"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("store update failure is an unexpected error", func(t *testing.T) {
		repo := &mockCredentialRepo{
			stored:    storedCredential(t, "benjamin", "the-current-password"),
			updateErr: errors.New("connection reset"),
		}
		svc := newPasswordService(t, repo)

		err := svc.ChangePassword(ctx, repo.stored.UserID,
			secret.New("the-current-password"),
			secret.New("a-brand-new-password"),
			secret.New("a-brand-new-password"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, auth.ErrPasswordMismatch)
	})
}
