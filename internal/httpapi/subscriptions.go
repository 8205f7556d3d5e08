// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lettermill/lettermill/internal/subscription"
)

type subscribeRequest struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

// handleSubscribe accepts a new subscription request. The subscriber ends
// up pending until they follow the emailed confirmation link.
func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		s.countSubscription("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	err := s.deps.Subscriptions.Subscribe(c.Request.Context(), subscription.SubscribeForm{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "subscription failed",
				"email", req.Email, "error", err)
			s.countSubscription("failed")
		} else {
			s.countSubscription("invalid")
		}
		c.JSON(status, gin.H{"error": errorBody(status, err)})
		return
	}

	s.countSubscription("accepted")
	c.Status(http.StatusOK)
}

// handleConfirm redeems a confirmation token from the emailed link.
func (s *Server) handleConfirm(c *gin.Context) {
	token := c.Query("subscription_token")
	if token == "" {
		s.countConfirmation("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_token is required"})
		return
	}

	if err := s.deps.Subscriptions.Confirm(c.Request.Context(), token); err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "confirmation failed", "error", err)
			s.countConfirmation("failed")
		} else {
			s.countConfirmation("unknown_token")
		}
		c.JSON(status, gin.H{"error": errorBody(status, err)})
		return
	}

	s.countConfirmation("confirmed")
	c.Status(http.StatusOK)
}

func (s *Server) countSubscription(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SubscriptionsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countConfirmation(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ConfirmationsTotal.WithLabelValues(outcome).Inc()
	}
}
