// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription

// Issue is one newsletter edition to deliver to confirmed subscribers.
type Issue struct {
	Title       string
	HTMLContent string
	TextContent string
}

// Validate rejects issues that would go out empty.
func (i Issue) Validate() error {
	if i.Title == "" {
		return &ValidationError{Reason: "issue title cannot be empty"}
	}
	if i.HTMLContent == "" && i.TextContent == "" {
		return &ValidationError{Reason: "issue content cannot be empty"}
	}
	return nil
}
