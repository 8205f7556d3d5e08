// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/secret"
	"github.com/lettermill/lettermill/internal/subscription"
)

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// handlePublishNewsletter delivers a newsletter issue to every confirmed
// subscriber. The caller authenticates with HTTP Basic credentials against
// the same credential store logins use.
func (s *Server) handlePublishNewsletter(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		s.countNewsletter("auth_failed")
		s.challengeBasicAuth(c)
		return
	}

	_, err := s.deps.Authenticator.Validate(c.Request.Context(), auth.Credentials{
		Username: username,
		Password: secret.New(password),
	})
	if err != nil {
		if statusForError(err) == http.StatusUnauthorized {
			s.countNewsletter("auth_failed")
			s.challengeBasicAuth(c)
			return
		}
		slog.ErrorContext(c.Request.Context(), "newsletter publish auth failed",
			"username", username, "error", err)
		s.countNewsletter("failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.countNewsletter("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	err = s.deps.Newsletters.PublishIssue(c.Request.Context(), subscription.Issue{
		Title:       req.Title,
		HTMLContent: req.Content.HTML,
		TextContent: req.Content.Text,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "newsletter publish failed",
				"title", req.Title, "error", err)
			s.countNewsletter("failed")
		} else {
			s.countNewsletter("invalid")
		}
		c.JSON(status, gin.H{"error": errorBody(status, err)})
		return
	}

	s.countNewsletter("published")
	c.Status(http.StatusOK)
}

// challengeBasicAuth rejects the request with the Basic challenge for the
// publish realm.
func (s *Server) challengeBasicAuth(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="publish"`)
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
}

func (s *Server) countNewsletter(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.NewslettersTotal.WithLabelValues(outcome).Inc()
	}
}
