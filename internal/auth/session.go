// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// sessionUserIDKey is the session field holding the authenticated user id.
const sessionUserIDKey = "user_id"

// Session is the opaque server-side session collaborator. It is backed by
// an external session store; expiry and id rotation live there, not here.
type Session interface {
	// Get reads a session field. The second return is false when the
	// field is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Insert sets a session field.
	Insert(ctx context.Context, key, value string) error

	// Clear removes all session state.
	Clear(ctx context.Context) error
}

// SessionGuard maps an opaque session to a user identity for protected
// operations. A guard is scoped to one request: the identity resolved by
// RequireUser is cached for the remainder of that request, and Logout
// drops both the session state and the cached identity.
type SessionGuard struct {
	session Session
	cached  *uuid.UUID
}

// NewSessionGuard creates a guard over the given session.
func NewSessionGuard(session Session) *SessionGuard {
	return &SessionGuard{session: session}
}

// RequireUser returns the authenticated user id, or ErrNotAuthenticated
// when the session holds none. Callers must redirect to login on failure
// and never proceed.
func (g *SessionGuard) RequireUser(ctx context.Context) (uuid.UUID, error) {
	if g.cached != nil {
		return *g.cached, nil
	}

	raw, ok, err := g.session.Get(ctx, sessionUserIDKey)
	if err != nil {
		return uuid.Nil, oops.Code("SESSION_READ_FAILED").
			With("operation", "get user id").
			Wrap(err)
	}
	if !ok {
		return uuid.Nil, ErrNotAuthenticated
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, oops.Code("SESSION_CORRUPT").
			With("operation", "parse user id").
			Wrap(err)
	}

	g.cached = &userID
	return userID, nil
}

// Login records the authenticated user id in the session.
func (g *SessionGuard) Login(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return oops.Code("SESSION_INVALID_USER").Errorf("user id cannot be nil")
	}
	if err := g.session.Insert(ctx, sessionUserIDKey, userID.String()); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").
			With("operation", "insert user id").
			Wrap(err)
	}
	g.cached = &userID
	return nil
}

// Logout clears the session state. The cached identity is invalidated too,
// so a later RequireUser in the same request cannot observe the stale id.
func (g *SessionGuard) Logout(ctx context.Context) error {
	g.cached = nil
	if err := g.session.Clear(ctx); err != nil {
		return oops.Code("SESSION_CLEAR_FAILED").
			With("operation", "clear session").
			Wrap(err)
	}
	return nil
}
