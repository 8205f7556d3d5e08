// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package secret provides a wrapper type for sensitive strings.
//
// A secret.String never discloses its content through default formatting,
// logging, or JSON marshaling; all of these render a redaction marker.
// Callers that genuinely need the content must opt in through Reveal,
// and comparisons must go through Equals, which compares revealed
// contents in constant time.
package secret

import (
	"crypto/subtle"
	"log/slog"
)

// Redacted is the marker rendered in place of secret content.
const Redacted = "[REDACTED]"

// String wraps a sensitive string value.
//
// The zero value is an empty secret. String deliberately does not expose
// its content through fmt, slog, or encoding/json; == on two String
// values compares wrapped contents directly and must not be used for
// password checks (use Equals).
type String struct {
	value string
}

// New wraps a sensitive string.
func New(value string) String {
	return String{value: value}
}

// Reveal returns the wrapped content. Every call site is an explicit
// opt-in to handling the raw secret.
func (s String) Reveal() string {
	return s.value
}

// Equals compares two secrets in constant time.
func (s String) Equals(other String) bool {
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(other.value)) == 1
}

// IsEmpty reports whether the secret holds an empty string.
func (s String) IsEmpty() bool {
	return s.value == ""
}

// Len returns the length of the wrapped content in bytes without
// revealing it.
func (s String) Len() int {
	return len(s.value)
}

// String implements fmt.Stringer and always returns the redaction marker.
func (s String) String() string {
	return Redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the content.
func (s String) GoString() string {
	return "secret.String(" + Redacted + ")"
}

// LogValue implements slog.LogValuer so structured logs carry the marker.
func (s String) LogValue() slog.Value {
	return slog.StringValue(Redacted)
}

// MarshalJSON renders the redaction marker instead of the content.
// UnmarshalJSON is intentionally absent: secrets enter the process through
// config loading or form parsing, never through JSON decoding.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}
