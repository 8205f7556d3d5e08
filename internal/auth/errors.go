// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. The two cases share one error value and one wording so the
// response leaks nothing about which check failed.
var ErrInvalidCredentials = oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")

// ErrNotAuthenticated is returned when an operation requires a logged-in
// user and the session carries none. Callers must redirect to login.
var ErrNotAuthenticated = oops.Code("AUTH_NOT_AUTHENTICATED").Errorf("the user has not logged in")

// ErrPasswordMismatch is returned when the two new-password entries of a
// password change do not match.
var ErrPasswordMismatch = oops.Code("AUTH_PASSWORD_MISMATCH").Errorf("the two new passwords do not match")
