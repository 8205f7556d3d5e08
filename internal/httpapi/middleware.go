// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/auth"
)

// sessionCookie names the cookie carrying the opaque session identifier.
const sessionCookie = "lettermill_session"

const guardContextKey = "lettermill/session_guard"

// requestLogger logs each request through the default slog logger so
// records pick up the service identity and trace context.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// requireSession rejects requests without a logged-in session and stashes
// a guard for the handler. The guard caches the user id for the rest of
// the request.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		guard := auth.NewSessionGuard(s.deps.Sessions.Load(id))
		if _, err := guard.RequireUser(c.Request.Context()); err != nil {
			status := statusForError(err)
			if status == http.StatusInternalServerError {
				c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		c.Set(guardContextKey, guard)
		c.Next()
	}
}

// sessionGuard returns the guard stashed by requireSession.
func sessionGuard(c *gin.Context) *auth.SessionGuard {
	guard, _ := c.MustGet(guardContextKey).(*auth.SessionGuard)
	return guard
}

// setSessionCookie points the client at a session. A negative maxAge
// deletes the cookie.
func (s *Server) setSessionCookie(c *gin.Context, id string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, maxAge, "/", "", false, true)
}
