// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength bounds subscriber names, in runes.
const MaxNameLength = 256

// forbiddenNameChars are rejected to keep names out of markup and paths.
const forbiddenNameChars = `/()"<>\{}`

// ValidationError reports bad user input. It is never the server's fault
// and maps to a bad-request outcome at the boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Name is a validated subscriber name. Obtain through ParseName only.
type Name struct {
	value string
}

// ParseName validates a raw subscriber name.
func ParseName(raw string) (Name, error) {
	if strings.TrimSpace(raw) == "" {
		return Name{}, &ValidationError{Reason: "name cannot be empty or whitespace"}
	}
	if utf8.RuneCountInString(raw) > MaxNameLength {
		return Name{}, &ValidationError{Reason: "name is too long"}
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return Name{}, &ValidationError{Reason: "name contains forbidden characters"}
	}
	return Name{value: raw}, nil
}

func (n Name) String() string {
	return n.value
}

// Email is a validated subscriber email address. Obtain through ParseEmail only.
type Email struct {
	value string
}

// ParseEmail validates a raw email address. net/mail accepts some shapes a
// mail provider never would (no dot in the domain, display names), so the
// address must also pass a stricter single-address shape check.
func ParseEmail(raw string) (Email, error) {
	if strings.TrimSpace(raw) == "" {
		return Email{}, &ValidationError{Reason: "email cannot be empty"}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return Email{}, &ValidationError{Reason: "email is not a valid address"}
	}
	at := strings.LastIndex(raw, "@")
	if at <= 0 || !strings.Contains(raw[at+1:], ".") {
		return Email{}, &ValidationError{Reason: "email is not a valid address"}
	}
	return Email{value: raw}, nil
}

func (e Email) String() string {
	return e.value
}

// NewSubscriber is a validated subscription submission.
type NewSubscriber struct {
	Name  Name
	Email Email
}

// ParseNewSubscriber validates a raw form submission.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	n, err := ParseName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := ParseEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: n, Email: e}, nil
}

// Status is the confirmation state of a subscriber. The only transition is
// pending_confirmation to confirmed, exactly once, never reverse.
type Status string

// Subscriber statuses as stored.
const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

// Subscriber is a persisted newsletter subscriber.
type Subscriber struct {
	ID           uuid.UUID
	Email        Email
	Name         Name
	SubscribedAt time.Time
	Status       Status
}

// NewPendingSubscriber creates a Subscriber row for a validated submission.
func NewPendingSubscriber(sub NewSubscriber) *Subscriber {
	return &Subscriber{
		ID:           uuid.New(),
		Email:        sub.Email,
		Name:         sub.Name,
		SubscribedAt: time.Now().UTC(),
		Status:       StatusPendingConfirmation,
	}
}
