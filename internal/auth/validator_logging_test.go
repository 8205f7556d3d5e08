// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/secret"
)

// Secret material must never reach the logs, not even when a whole login
// attempt or a failure chain is logged verbatim.
func TestValidateNeverLogsPassword(t *testing.T) {
	ctx := context.Background()
	const plaintext = "super-secret-password-42"

	repo := &mockCredentialRepo{stored: storedCredential(t, "benjamin", plaintext)}
	validator, _ := newTestValidator(t, repo)

	creds := auth.Credentials{
		Username: "benjamin",
		Password: secret.New("wrong-guess-password"),
	}
	_, validateErr := validator.Validate(ctx, creds)
	require.Error(t, validateErr)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Error("login failed",
		"credentials", creds,
		"password", creds.Password,
		"error", validateErr.Error(),
	)

	out := buf.String()
	require.NotContains(t, out, "wrong-guess-password")
	require.NotContains(t, out, plaintext)
	require.Contains(t, out, secret.Redacted)
}
