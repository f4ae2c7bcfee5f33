// Package session implements the credential lifecycle state shared by all
// backend instances: login lockout counters, the refresh token registry,
// the access token blacklist, password reset tokens and per-user token
// versions. Everything lives in an external key-value store and expires by
// TTL unless removed explicitly.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound indicates the requested key does not exist in the store
var ErrKeyNotFound = errors.New("key not found")

// KV is the key-value store client the session store is built on. All
// operations are network round-trips and honor the caller's context
// deadline. Mutating calls are not guaranteed at-most-once on timeout.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	SortedSetAdd(ctx context.Context, key, member string, score float64) error
	SortedSetRange(ctx context.Context, key string, min, max float64) ([]string, error)
	SortedSetRemove(ctx context.Context, key string, members ...string) error
	SortedSetRemoveByScoreRange(ctx context.Context, key string, min, max float64) error
	SortedSetCardinality(ctx context.Context, key string) (int64, error)
}
