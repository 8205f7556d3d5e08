// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/secret"
)

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// handleLogin validates credentials and issues a fresh session. The
// pre-login session id, if any, is never promoted to a logged-in one.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.countLogin("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	userID, err := s.deps.Authenticator.Validate(c.Request.Context(), auth.Credentials{
		Username: req.Username,
		Password: secret.New(req.Password),
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "login failed",
				"username", req.Username, "error", err)
			s.countLogin("failed")
		} else {
			s.countLogin("invalid_credentials")
		}
		c.JSON(status, gin.H{"error": errorBody(status, err)})
		return
	}

	userSession := s.deps.Sessions.New()
	guard := auth.NewSessionGuard(userSession)
	if err := guard.Login(c.Request.Context(), userID); err != nil {
		slog.ErrorContext(c.Request.Context(), "session create failed", "error", err)
		s.countLogin("failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	s.setSessionCookie(c, userSession.ID(), int(s.sessionTTL.Seconds()))
	s.countLogin("success")
	c.Status(http.StatusOK)
}

// handleLogout destroys the session and expires the cookie.
func (s *Server) handleLogout(c *gin.Context) {
	if err := sessionGuard(c).Logout(c.Request.Context()); err != nil {
		slog.ErrorContext(c.Request.Context(), "logout failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	s.setSessionCookie(c, "", -1)
	c.Status(http.StatusOK)
}

type changePasswordRequest struct {
	CurrentPassword  string `form:"current_password" json:"current_password"`
	NewPassword      string `form:"new_password" json:"new_password"`
	NewPasswordCheck string `form:"new_password_check" json:"new_password_check"`
}

// handleChangePassword rotates the logged-in user's password.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		s.countPasswordChange("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	userID, err := sessionGuard(c).RequireUser(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	err = s.deps.Passwords.ChangePassword(c.Request.Context(), userID,
		secret.New(req.CurrentPassword),
		secret.New(req.NewPassword),
		secret.New(req.NewPasswordCheck),
	)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "password change failed",
				"user_id", userID.String(), "error", err)
			s.countPasswordChange("failed")
		} else {
			s.countPasswordChange("rejected")
		}
		c.JSON(status, gin.H{"error": errorBody(status, err)})
		return
	}

	s.countPasswordChange("changed")
	c.Status(http.StatusOK)
}

func (s *Server) countLogin(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countPasswordChange(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.PasswordChangesTotal.WithLabelValues(outcome).Inc()
	}
}
