// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package secret_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/secret"
)

func TestStringRedaction(t *testing.T) {
	s := secret.New("hunter2-correct-horse")

	t.Run("fmt verbs render the marker", func(t *testing.T) {
		assert.Equal(t, secret.Redacted, fmt.Sprintf("%s", s))
		assert.Equal(t, secret.Redacted, fmt.Sprintf("%v", s))
		assert.NotContains(t, fmt.Sprintf("%#v", s), "hunter2")
	})

	t.Run("slog output carries the marker", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		logger.Info("login attempt", "password", s)

		assert.Contains(t, buf.String(), secret.Redacted)
		assert.NotContains(t, buf.String(), "hunter2")
	})

	t.Run("json marshaling redacts", func(t *testing.T) {
		out, err := json.Marshal(struct {
			Password secret.String `json:"password"`
		}{Password: s})
		require.NoError(t, err)
		assert.JSONEq(t, `{"password":"[REDACTED]"}`, string(out))
	})

	t.Run("reveal returns the content", func(t *testing.T) {
		assert.Equal(t, "hunter2-correct-horse", s.Reveal())
	})
}

func TestStringEquals(t *testing.T) {
	t.Run("equal contents match", func(t *testing.T) {
		assert.True(t, secret.New("same").Equals(secret.New("same")))
	})

	t.Run("different contents do not match", func(t *testing.T) {
		assert.False(t, secret.New("one").Equals(secret.New("two")))
	})

	t.Run("empty secrets match each other", func(t *testing.T) {
		assert.True(t, secret.New("").Equals(secret.String{}))
	})
}

func TestStringHelpers(t *testing.T) {
	assert.True(t, secret.String{}.IsEmpty())
	assert.False(t, secret.New("x").IsEmpty())
	assert.Equal(t, 5, secret.New("12345").Len())
}
