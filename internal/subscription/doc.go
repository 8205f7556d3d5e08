// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package subscription implements the newsletter subscription workflow.
//
// # Domain Types
//
// NewSubscriber can only be obtained through ParseNewSubscriber (or the
// individual ParseName/ParseEmail functions); invalid input never produces
// an instance. Subscriber is the persisted row, moving through exactly one
// status transition: pending_confirmation to confirmed.
//
// # Workflow
//
// Service.Subscribe persists a subscriber and its one-time confirmation
// token in a single store transaction and sends the confirmation email
// before committing, so a subscriber only exists in the store if the
// transport accepted the email. Service.Confirm redeems a token and marks
// the subscriber confirmed; re-confirming is a harmless no-op.
package subscription
