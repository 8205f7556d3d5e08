// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/subscription"
)

// statusForError maps domain errors to HTTP status codes. Anything
// unrecognized is an internal error.
func statusForError(err error) int {
	var validationErr *subscription.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, subscription.ErrUnknownToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case "AUTH_PASSWORD_LENGTH", "AUTH_EMPTY_PASSWORD":
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// errorBody renders a safe error message for the client. Internal details
// stay in the logs.
func errorBody(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
