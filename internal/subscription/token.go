// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package subscription

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// TokenLength is the length of a confirmation token in characters.
const TokenLength = 25

// tokenAlphabet is the 62-symbol alphanumeric alphabet; tokens are
// case-sensitive.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateToken draws a confirmation token uniformly from the alphanumeric
// alphabet using a cryptographically strong source. Tokens are not globally
// unique by construction; the store's unique constraint on the token column
// enforces that, and the workflow retries once on a collision.
func GenerateToken() (string, error) {
	alphabetLen := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, TokenLength)
	for i := range buf {
		// rand.Int is uniform; indexing bytes directly would carry modulo bias.
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", oops.Code("TOKEN_GENERATE_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
