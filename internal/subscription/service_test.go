// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/subscription"
)

// memStore is an in-memory subscription.Store with transactional staging.
type memStore struct {
	subscribers map[uuid.UUID]*subscription.Subscriber
	tokens      map[string]uuid.UUID

	beginErr     error
	insertSubErr error
	insertTokErr error
	commitErr    error
	listErr      error

	// rawConfirmedEmails simulates stored rows predating the current
	// validation rules.
	rawConfirmedEmails []string

	// collideFirstToken makes the first InsertToken fail with a collision.
	collideFirstToken bool
	tokenInserts      int
}

func newMemStore() *memStore {
	return &memStore{
		subscribers: make(map[uuid.UUID]*subscription.Subscriber),
		tokens:      make(map[string]uuid.UUID),
	}
}

type memTx struct {
	store      *memStore
	subscriber *subscription.Subscriber
	token      string
	tokenFor   uuid.UUID
	committed  bool
}

func (s *memStore) Begin(_ context.Context) (subscription.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{store: s}, nil
}

func (tx *memTx) InsertSubscriber(_ context.Context, subscriber *subscription.Subscriber) error {
	if tx.store.insertSubErr != nil {
		return tx.store.insertSubErr
	}
	tx.subscriber = subscriber
	return nil
}

func (tx *memTx) InsertToken(_ context.Context, token string, subscriberID uuid.UUID) error {
	tx.store.tokenInserts++
	if tx.store.collideFirstToken && tx.store.tokenInserts == 1 {
		return subscription.ErrTokenCollision
	}
	if tx.store.insertTokErr != nil {
		return tx.store.insertTokErr
	}
	if _, taken := tx.store.tokens[token]; taken {
		return subscription.ErrTokenCollision
	}
	tx.token = token
	tx.tokenFor = subscriberID
	return nil
}

func (tx *memTx) Commit(_ context.Context) error {
	if tx.store.commitErr != nil {
		return tx.store.commitErr
	}
	tx.store.subscribers[tx.subscriber.ID] = tx.subscriber
	tx.store.tokens[tx.token] = tx.tokenFor
	tx.committed = true
	return nil
}

func (tx *memTx) Rollback(_ context.Context) error {
	return nil
}

func (s *memStore) GetSubscriberIDByToken(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, subscription.ErrNotFound
	}
	return id, nil
}

func (s *memStore) ConfirmSubscriber(_ context.Context, subscriberID uuid.UUID) error {
	if sub, ok := s.subscribers[subscriberID]; ok {
		sub.Status = subscription.StatusConfirmed
	}
	return nil
}

func (s *memStore) GetConfirmedSubscriberEmails(_ context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	emails := append([]string(nil), s.rawConfirmedEmails...)
	for _, sub := range s.subscribers {
		if sub.Status == subscription.StatusConfirmed {
			emails = append(emails, sub.Email.String())
		}
	}
	return emails, nil
}

// fakeSender records sent emails and can fail on demand.
type fakeSender struct {
	sendErr error

	to       []string
	subjects []string
	html     []string
	text     []string
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.to = append(f.to, to)
	f.subjects = append(f.subjects, subject)
	f.html = append(f.html, htmlBody)
	f.text = append(f.text, textBody)
	return nil
}

var tokenLinkRe = regexp.MustCompile(`subscription_token=([A-Za-z0-9]{25})\b`)

func validForm() subscription.SubscribeForm {
	return subscription.SubscribeForm{Name: "benjamin", Email: "benjamin@example.com"}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("persists one pending subscriber with one bound token", func(t *testing.T) {
		store := newMemStore()
		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")

		require.NoError(t, svc.Subscribe(ctx, validForm()))

		require.Len(t, store.subscribers, 1)
		require.Len(t, store.tokens, 1)
		for _, sub := range store.subscribers {
			assert.Equal(t, subscription.StatusPendingConfirmation, sub.Status)
			assert.Equal(t, "benjamin@example.com", sub.Email.String())
		}
		for _, boundTo := range store.tokens {
			_, ok := store.subscribers[boundTo]
			assert.True(t, ok, "token bound to a missing subscriber")
		}
	})

	t.Run("confirmation email embeds a 25-character token link", func(t *testing.T) {
		store := newMemStore()
		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")

		require.NoError(t, svc.Subscribe(ctx, validForm()))

		require.Len(t, sender.to, 1)
		assert.Equal(t, "benjamin@example.com", sender.to[0])
		assert.Equal(t, "Welcome!", sender.subjects[0])

		htmlMatch := tokenLinkRe.FindStringSubmatch(sender.html[0])
		textMatch := tokenLinkRe.FindStringSubmatch(sender.text[0])
		require.NotNil(t, htmlMatch, "html body carries no token link")
		require.NotNil(t, textMatch, "text body carries no token link")
		assert.Equal(t, htmlMatch[1], textMatch[1])
		assert.Contains(t, sender.html[0], "https://lettermill.dev/subscriptions/confirm")

		// The linked token is the stored one.
		_, ok := store.tokens[htmlMatch[1]]
		assert.True(t, ok)
	})

	t.Run("validation failure stores nothing and sends nothing", func(t *testing.T) {
		store := newMemStore()
		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")

		for _, form := range []subscription.SubscribeForm{
			{Name: "benjamin", Email: ""},
			{Name: "benjamin", Email: "missing-at-sign.com"},
			{Name: "", Email: "benjamin@example.com"},
		} {
			err := svc.Subscribe(ctx, form)
			var validationErr *subscription.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		}
		assert.Empty(t, store.subscribers)
		assert.Empty(t, sender.to)
	})

	t.Run("email failure rolls everything back", func(t *testing.T) {
		store := newMemStore()
		sender := &fakeSender{sendErr: errors.New("transport down")}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")

		err := svc.Subscribe(ctx, validForm())
		require.Error(t, err)
		assert.Empty(t, store.subscribers)
		assert.Empty(t, store.tokens)
	})

	t.Run("commit failure surfaces and persists nothing", func(t *testing.T) {
		store := newMemStore()
		store.commitErr = errors.New("commit refused")
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		err := svc.Subscribe(ctx, validForm())
		require.Error(t, err)
		assert.Empty(t, store.subscribers)
	})

	t.Run("token collision retries once and succeeds", func(t *testing.T) {
		store := newMemStore()
		store.collideFirstToken = true
		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")

		require.NoError(t, svc.Subscribe(ctx, validForm()))
		assert.Equal(t, 2, store.tokenInserts)
		assert.Len(t, store.subscribers, 1)
		// The aborted first attempt must not have produced an email.
		assert.Len(t, sender.to, 1)
	})

	t.Run("persistent collision surfaces a server error", func(t *testing.T) {
		store := newMemStore()
		store.insertTokErr = subscription.ErrTokenCollision
		store.collideFirstToken = true
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		err := svc.Subscribe(ctx, validForm())
		require.Error(t, err)
		assert.ErrorIs(t, err, subscription.ErrTokenCollision)
		assert.Equal(t, 2, store.tokenInserts)
	})

	t.Run("same email twice creates two pending rows", func(t *testing.T) {
		store := newMemStore()
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		require.NoError(t, svc.Subscribe(ctx, validForm()))
		require.NoError(t, svc.Subscribe(ctx, validForm()))
		assert.Len(t, store.subscribers, 2)
		assert.Len(t, store.tokens, 2)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	subscribeOne := func(t *testing.T) (*memStore, string) {
		t.Helper()
		store := newMemStore()
		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		require.NoError(t, svc.Subscribe(ctx, validForm()))
		match := tokenLinkRe.FindStringSubmatch(sender.text[0])
		require.NotNil(t, match)
		return store, match[1]
	}

	t.Run("round-trip confirms the subscriber", func(t *testing.T) {
		store, token := subscribeOne(t)
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		require.NoError(t, svc.Confirm(ctx, token))
		for _, sub := range store.subscribers {
			assert.Equal(t, subscription.StatusConfirmed, sub.Status)
		}
	})

	t.Run("confirming twice is a no-op success", func(t *testing.T) {
		store, token := subscribeOne(t)
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		require.NoError(t, svc.Confirm(ctx, token))
		require.NoError(t, svc.Confirm(ctx, token))
		for _, sub := range store.subscribers {
			assert.Equal(t, subscription.StatusConfirmed, sub.Status)
		}
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		store, _ := subscribeOne(t)
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")

		err := svc.Confirm(ctx, "nonexistent-token")
		assert.ErrorIs(t, err, subscription.ErrUnknownToken)
	})
}

func validIssue() subscription.Issue {
	return subscription.Issue{
		Title:       "Issue #1",
		HTMLContent: "<p>Newsletter body</p>",
		TextContent: "Newsletter body",
	}
}

func TestPublishIssue(t *testing.T) {
	ctx := context.Background()

	// subscribeAndConfirm seeds one confirmed subscriber.
	subscribeAndConfirm := func(t *testing.T, store *memStore, sender *fakeSender, email string) {
		t.Helper()
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		require.NoError(t, svc.Subscribe(ctx, subscription.SubscribeForm{Name: "benjamin", Email: email}))
		match := tokenLinkRe.FindStringSubmatch(sender.text[len(sender.text)-1])
		require.NotNil(t, match)
		require.NoError(t, svc.Confirm(ctx, match[1]))
	}

	t.Run("delivers only to confirmed subscribers", func(t *testing.T) {
		store := newMemStore()
		setup := &fakeSender{}
		subscribeAndConfirm(t, store, setup, "confirmed@example.com")

		// A second subscriber never follows their confirmation link.
		pendingSvc := subscription.NewService(store, setup, "https://lettermill.dev")
		require.NoError(t, pendingSvc.Subscribe(ctx, subscription.SubscribeForm{
			Name: "pending", Email: "pending@example.com",
		}))

		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		require.NoError(t, svc.PublishIssue(ctx, validIssue()))

		require.Equal(t, []string{"confirmed@example.com"}, sender.to)
		assert.Equal(t, "Issue #1", sender.subjects[0])
		assert.Equal(t, "<p>Newsletter body</p>", sender.html[0])
		assert.Equal(t, "Newsletter body", sender.text[0])
	})

	t.Run("invalid stored email is skipped, delivery continues", func(t *testing.T) {
		store := newMemStore()
		setup := &fakeSender{}
		store.rawConfirmedEmails = []string{"not-an-address"}
		subscribeAndConfirm(t, store, setup, "confirmed@example.com")

		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		require.NoError(t, svc.PublishIssue(ctx, validIssue()))
		assert.Equal(t, []string{"confirmed@example.com"}, sender.to)
	})

	t.Run("empty title is rejected before any delivery", func(t *testing.T) {
		store := newMemStore()
		setup := &fakeSender{}
		subscribeAndConfirm(t, store, setup, "confirmed@example.com")

		sender := &fakeSender{}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		issue := validIssue()
		issue.Title = ""

		err := svc.PublishIssue(ctx, issue)
		var validationErr *subscription.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Empty(t, sender.to)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		svc := subscription.NewService(newMemStore(), &fakeSender{}, "https://lettermill.dev")

		err := svc.PublishIssue(ctx, subscription.Issue{Title: "Issue #1"})
		var validationErr *subscription.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("transport failure aborts the run", func(t *testing.T) {
		store := newMemStore()
		setup := &fakeSender{}
		subscribeAndConfirm(t, store, setup, "confirmed@example.com")

		sender := &fakeSender{sendErr: errors.New("transport down")}
		svc := subscription.NewService(store, sender, "https://lettermill.dev")
		require.Error(t, svc.PublishIssue(ctx, validIssue()))
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store := newMemStore()
		store.listErr = errors.New("connection refused")
		svc := subscription.NewService(store, &fakeSender{}, "https://lettermill.dev")
		require.Error(t, svc.PublishIssue(ctx, validIssue()))
	})
}
