package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/questx-lab/authserver/pkg/xredis"
)

const redisKeyPrefix = "oauthstate:"

type redisRegistry struct {
	client  xredis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRedisRegistry shares entries between every instance using the same
// redis server. Expiration is delegated to the key TTL.
func NewRedisRegistry(client xredis.Client, timeout time.Duration) *redisRegistry {
	return &redisRegistry{client: client, timeout: timeout, now: time.Now}
}

func (r *redisRegistry) Register(ctx context.Context) (string, string, error) {
	state := uuid.NewString()
	nonce := uuid.NewString()

	entry := Entry{Nonce: nonce, ExpiresAt: r.now().Add(r.timeout)}
	ok, err := r.client.SetObjNX(ctx, redisKey(state), entry, r.timeout)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot store state in redis: %v", err)
		return "", "", ErrRegistrationFailed
	}

	if !ok {
		xcontext.Logger(ctx).Errorf("State %s is already registered", state)
		return "", "", ErrRegistrationFailed
	}

	return state, nonce, nil
}

func (r *redisRegistry) Validate(ctx context.Context, state, nonce string) bool {
	var entry Entry
	if err := r.client.GetDelObj(ctx, redisKey(state), &entry); err != nil {
		if !errors.Is(err, xredis.ErrNil) {
			xcontext.Logger(ctx).Errorf("Cannot load state from redis: %v", err)
		}
		return false
	}

	// The key TTL has a coarser resolution than the recorded expiry.
	if entry.expired(r.now()) {
		return false
	}

	return nonce == "" || nonce == entry.Nonce
}

// Sweep is a no-op, redis evicts expired keys itself.
func (r *redisRegistry) Sweep(ctx context.Context) int {
	return 0
}

func redisKey(state string) string {
	return redisKeyPrefix + state
}
