// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/observability"
)

// ErrUnknownToken is returned by Confirm for a token no subscriber is bound
// to. It maps to a bad-request outcome, not a server error, and its wording
// is as uninformative as a failed login on purpose.
var ErrUnknownToken = oops.Code("CONFIRM_UNKNOWN_TOKEN").Errorf("invalid confirmation token")

// SubscribeForm is the already-parsed form data handed in by the boundary.
type SubscribeForm struct {
	Name  string
	Email string
}

// Service runs the subscription workflow.
type Service struct {
	store   Store
	sender  email.Sender
	baseURL string
}

// NewService creates a subscription Service. baseURL is the externally
// reachable application root embedded in confirmation links.
func NewService(store Store, sender email.Sender, baseURL string) *Service {
	return &Service{
		store:   store,
		sender:  sender,
		baseURL: baseURL,
	}
}

// Subscribe validates a submission and persists the subscriber together
// with a fresh confirmation token, in one transaction. The confirmation
// email is sent before the commit: if the transport rejects it the
// transaction is rolled back and neither row survives. A token collision
// at insert time regenerates the token and retries the whole attempt once.
//
// Two subscriptions with the same email create two independent pending
// rows; this layer deliberately enforces no email uniqueness.
func (s *Service) Subscribe(ctx context.Context, form SubscribeForm) error {
	sub, err := ParseNewSubscriber(form.Name, form.Email)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.subscribeOnce(ctx, sub)
		if errors.Is(err, ErrTokenCollision) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Service) subscribeOnce(ctx context.Context, sub NewSubscriber) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return oops.Code("SUBSCRIBE_POOL_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	// Rollback after a successful commit is a no-op, so cancellation at any
	// point before the commit behaves as a rollback.
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // rollback of a committed tx is a no-op

	subscriber := NewPendingSubscriber(sub)
	if err := tx.InsertSubscriber(ctx, subscriber); err != nil {
		return oops.Code("SUBSCRIBE_INSERT_FAILED").
			With("operation", "insert subscriber").
			Wrap(err)
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}
	if err := tx.InsertToken(ctx, token, subscriber.ID); err != nil {
		if errors.Is(err, ErrTokenCollision) {
			return err
		}
		return oops.Code("SUBSCRIBE_STORE_TOKEN_FAILED").
			With("operation", "insert token").
			Wrap(err)
	}

	if err := s.sendConfirmationEmail(ctx, sub, token); err != nil {
		observability.RecordEmailSendFailure()
		return oops.Code("SUBSCRIBE_SEND_EMAIL_FAILED").
			With("operation", "send confirmation email").
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SUBSCRIBE_COMMIT_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// sendConfirmationEmail delivers the confirmation link for a pending
// subscriber through the email collaborator.
func (s *Service) sendConfirmationEmail(ctx context.Context, sub NewSubscriber, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)
	htmlBody := fmt.Sprintf(
		`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`,
		link,
	)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
		link,
	)
	return s.sender.Send(ctx, sub.Email.String(), "Welcome!", htmlBody, textBody)
}

// PublishIssue delivers a newsletter issue to every confirmed subscriber.
// A stored address the current validation rules reject is skipped with a
// warning rather than blocking delivery to everyone else; a transport
// failure for a valid address aborts the run.
func (s *Service) PublishIssue(ctx context.Context, issue Issue) error {
	if err := issue.Validate(); err != nil {
		return err
	}

	emails, err := s.store.GetConfirmedSubscriberEmails(ctx)
	if err != nil {
		return oops.Code("PUBLISH_LIST_FAILED").
			With("operation", "list confirmed subscribers").
			Wrap(err)
	}

	for _, raw := range emails {
		addr, err := ParseEmail(raw)
		if err != nil {
			slog.WarnContext(ctx, "skipping confirmed subscriber with invalid stored email",
				"error", err)
			continue
		}
		if err := s.sender.Send(ctx, addr.String(), issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
			observability.RecordEmailSendFailure()
			return oops.Code("PUBLISH_SEND_EMAIL_FAILED").
				With("operation", "send newsletter issue").
				Wrap(err)
		}
	}
	return nil
}

// Confirm redeems a confirmation token and marks its subscriber confirmed.
// Confirming twice with the same token reports success both times.
func (s *Service) Confirm(ctx context.Context, token string) error {
	subscriberID, err := s.store.GetSubscriberIDByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownToken
		}
		return oops.Code("CONFIRM_FAILED").
			With("operation", "get subscriber by token").
			Wrap(err)
	}

	if err := s.store.ConfirmSubscriber(ctx, subscriberID); err != nil {
		return oops.Code("CONFIRM_FAILED").
			With("operation", "set subscriber confirmed").
			Wrap(err)
	}
	return nil
}
