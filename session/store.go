package session

import (
	"context"
	"errors"
)

const (
	// KeyToken holds the raw bearer credential.
	KeyToken = "token"
	// KeyUser holds the JSON-serialized user profile.
	KeyUser = "user"
)

// ErrStoreUnavailable wraps back-end failures (disk, Redis) so callers can tell them
// apart from a missing key, which is never an error.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the durable map behind the client session. Implementations must be safe
// for concurrent use. Get reports ok == false for a missing key; Remove of a missing
// key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Clear removes both session keys. Both removals are attempted even if the first
// fails; the first error is returned.
func Clear(ctx context.Context, s Store) error {
	errToken := s.Remove(ctx, KeyToken)
	errUser := s.Remove(ctx, KeyUser)
	if errToken != nil {
		return errToken
	}
	return errUser
}
