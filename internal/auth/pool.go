// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package auth

import (
	"context"
	"runtime"

	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/secret"
)

// Hasher is the context-aware hashing surface the services consume.
// Implementations own the execution strategy; callers just block until
// the computation completes.
type Hasher interface {
	Hash(ctx context.Context, password secret.String) (string, error)
	Verify(ctx context.Context, password secret.String, encodedHash string) (bool, error)
}

// HashPool bounds concurrent password hashing. Argon2id is CPU- and
// memory-expensive on purpose, so at most size computations run at once;
// further callers wait for a slot or for their context to be cancelled.
// Unrelated request goroutines are never tied up by a hashing burst.
type HashPool struct {
	hasher PasswordHasher
	slots  chan struct{}
}

// NewHashPool creates a HashPool around the given hasher.
// size <= 0 defaults to runtime.NumCPU().
func NewHashPool(hasher PasswordHasher, size int) *HashPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &HashPool{
		hasher: hasher,
		slots:  make(chan struct{}, size),
	}
}

// Hash dispatches PasswordHasher.Hash through the pool.
func (p *HashPool) Hash(ctx context.Context, password secret.String) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return p.hasher.Hash(password)
}

// Verify dispatches PasswordHasher.Verify through the pool.
func (p *HashPool) Verify(ctx context.Context, password secret.String, encodedHash string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, err
	}
	defer p.release()
	return p.hasher.Verify(password, encodedHash)
}

func (p *HashPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return oops.Code("AUTH_HASH_CANCELLED").
			With("operation", "acquire hash slot").
			Wrap(ctx.Err())
	}
}

func (p *HashPool) release() {
	<-p.slots
}
