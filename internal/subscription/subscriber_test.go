// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/subscription"
)

func TestParseName(t *testing.T) {
	t.Run("accepts an ordinary name", func(t *testing.T) {
		name, err := subscription.ParseName("Benjamin Button")
		require.NoError(t, err)
		assert.Equal(t, "Benjamin Button", name.String())
	})

	t.Run("accepts a name at the length bound", func(t *testing.T) {
		_, err := subscription.ParseName(strings.Repeat("a", 256))
		assert.NoError(t, err)
	})

	t.Run("accepts non-ascii names within the bound", func(t *testing.T) {
		_, err := subscription.ParseName(strings.Repeat("ё", 256))
		assert.NoError(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := subscription.ParseName("")
		assertValidationError(t, err)
	})

	t.Run("rejects whitespace-only name", func(t *testing.T) {
		_, err := subscription.ParseName("   \t ")
		assertValidationError(t, err)
	})

	t.Run("rejects a name over the length bound", func(t *testing.T) {
		_, err := subscription.ParseName(strings.Repeat("a", 257))
		assertValidationError(t, err)
	})

	t.Run("rejects forbidden characters", func(t *testing.T) {
		for _, c := range []string{"/", "(", ")", `"`, "<", ">", `\`, "{", "}"} {
			_, err := subscription.ParseName("name" + c)
			assertValidationError(t, err)
		}
	})
}

func TestParseEmail(t *testing.T) {
	t.Run("accepts a plain address", func(t *testing.T) {
		email, err := subscription.ParseEmail("benjamin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "benjamin@example.com", email.String())
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := subscription.ParseEmail("")
		assertValidationError(t, err)
	})

	t.Run("rejects address without at sign", func(t *testing.T) {
		_, err := subscription.ParseEmail("benjamin.example.com")
		assertValidationError(t, err)
	})

	t.Run("rejects address without local part", func(t *testing.T) {
		_, err := subscription.ParseEmail("@example.com")
		assertValidationError(t, err)
	})

	t.Run("rejects address with display name", func(t *testing.T) {
		_, err := subscription.ParseEmail("Benjamin <benjamin@example.com>")
		assertValidationError(t, err)
	})

	t.Run("rejects address without domain dot", func(t *testing.T) {
		_, err := subscription.ParseEmail("benjamin@localhost")
		assertValidationError(t, err)
	})
}

func TestParseNewSubscriber(t *testing.T) {
	t.Run("valid pair produces an instance", func(t *testing.T) {
		sub, err := subscription.ParseNewSubscriber("benjamin", "benjamin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "benjamin", sub.Name.String())
		assert.Equal(t, "benjamin@example.com", sub.Email.String())
	})

	t.Run("invalid name short-circuits", func(t *testing.T) {
		_, err := subscription.ParseNewSubscriber("", "benjamin@example.com")
		assertValidationError(t, err)
	})

	t.Run("invalid email short-circuits", func(t *testing.T) {
		_, err := subscription.ParseNewSubscriber("benjamin", "nope")
		assertValidationError(t, err)
	})
}

func TestNewPendingSubscriber(t *testing.T) {
	sub, err := subscription.ParseNewSubscriber("benjamin", "benjamin@example.com")
	require.NoError(t, err)

	row := subscription.NewPendingSubscriber(sub)
	assert.NotZero(t, row.ID)
	assert.Equal(t, subscription.StatusPendingConfirmation, row.Status)
	assert.False(t, row.SubscribedAt.IsZero())
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var validationErr *subscription.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
