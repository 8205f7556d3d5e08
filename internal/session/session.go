// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package session stores per-user session state in Redis.
//
// Each session is a Redis hash keyed by an opaque ULID identifier that
// travels in the session cookie. Login issues a fresh identifier rather
// than reusing the pre-login one, so an attacker cannot plant a session id
// before authentication.
package session

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/lettermill/lettermill/internal/auth"
)

// DefaultTTL is how long an idle session survives. Every write refreshes
// the clock.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "lettermill:session:"

// clientIface is the subset of redis.UniversalClient the store uses;
// a fake satisfies it in tests.
type clientIface interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ clientIface = (*redis.Client)(nil)

// Store creates and resolves sessions backed by Redis.
type Store struct {
	client clientIface
	ttl    time.Duration
}

// NewStore creates a Store. A non-positive ttl falls back to DefaultTTL.
func NewStore(client clientIface, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Open connects to Redis using a redis:// or rediss:// URL and verifies
// the server is reachable.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("SESSION_REDIS_URL_INVALID").
			With("operation", "parse redis url").
			Wrap(err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.Code("SESSION_REDIS_UNREACHABLE").
			With("operation", "ping redis").
			Wrap(err)
	}
	return client, nil
}

// New issues a fresh session with an opaque ULID identifier.
func (s *Store) New() *Handle {
	id := ulid.MustNew(ulid.Now(), rand.Reader)
	return &Handle{store: s, id: id.String()}
}

// Load returns a handle for an identifier presented by a client. The
// identifier is not validated here; a session that never existed simply
// has no entries.
func (s *Store) Load(id string) *Handle {
	return &Handle{store: s, id: id}
}

// Handle is one session's view of the store. It implements the session
// operations the auth services depend on.
type Handle struct {
	store *Store
	id    string
}

var _ auth.Session = (*Handle)(nil)

// ID returns the opaque identifier for the session cookie.
func (h *Handle) ID() string { return h.id }

func (h *Handle) redisKey() string { return keyPrefix + h.id }

// Get reads a session entry. A missing entry reports found=false without
// an error.
func (h *Handle) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := h.store.client.HGet(ctx, h.redisKey(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session entry").
			With("key", key).
			Wrap(err)
	}
	return value, true, nil
}

// Insert writes a session entry and refreshes the session TTL.
func (h *Handle) Insert(ctx context.Context, key, value string) error {
	if err := h.store.client.HSet(ctx, h.redisKey(), key, value).Err(); err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "set session entry").
			With("key", key).
			Wrap(err)
	}
	if err := h.store.client.Expire(ctx, h.redisKey(), h.store.ttl).Err(); err != nil {
		return oops.Code("SESSION_EXPIRE_FAILED").
			With("operation", "refresh session ttl").
			Wrap(err)
	}
	return nil
}

// Clear destroys the session and everything in it.
func (h *Handle) Clear(ctx context.Context) error {
	if err := h.store.client.Del(ctx, h.redisKey()).Err(); err != nil {
		return oops.Code("SESSION_CLEAR_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}
