// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package auth provides the credential authentication core for Lettermill.
//
// # Domain Types
//
// Credentials carries a username and a secret.String password for a single
// login attempt; it is transient and never persisted. StoredCredential is
// the persisted counterpart holding a PHC-formatted argon2id hash.
//
// # Services
//
//   - CredentialValidator - password verification with uniform timing for
//     unknown users and wrong passwords
//   - PasswordService - authenticated password change with policy checks
//   - SessionGuard - maps an opaque session to an authenticated user id
//
// Password hashing is deliberately expensive; every Hash/Verify call is
// dispatched through a bounded HashPool so concurrent login attempts cannot
// starve unrelated request handling.
package auth
