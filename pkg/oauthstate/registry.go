package oauthstate

import (
	"context"
	"errors"
	"time"
)

var ErrRegistrationFailed = errors.New("cannot register anti-forgery state")

// Registry issues single-use state/nonce pairs for authorization redirects.
//
// Validate always consumes the state, whatever the outcome. An empty nonce
// means the caller has no nonce to check and only the state is verified.
type Registry interface {
	Register(ctx context.Context) (state, nonce string, err error)
	Validate(ctx context.Context, state, nonce string) bool

	// Sweep drops expired entries and returns how many were removed.
	Sweep(ctx context.Context) int
}

type Entry struct {
	Nonce     string
	ExpiresAt time.Time
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
