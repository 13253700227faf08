package oauthstate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

type memoryRegistry struct {
	entries *xsync.MapOf[string, Entry]
	timeout time.Duration
	now     func() time.Time
}

// NewMemoryRegistry keeps entries in the process memory. Every instance of
// the service has its own entries, so a redirect must come back to the
// instance that started it.
func NewMemoryRegistry(timeout time.Duration) *memoryRegistry {
	return &memoryRegistry{
		entries: xsync.NewMapOf[Entry](),
		timeout: timeout,
		now:     time.Now,
	}
}

func (r *memoryRegistry) Register(ctx context.Context) (string, string, error) {
	state := uuid.NewString()
	nonce := uuid.NewString()

	entry := Entry{Nonce: nonce, ExpiresAt: r.now().Add(r.timeout)}
	if _, loaded := r.entries.LoadOrStore(state, entry); loaded {
		xcontext.Logger(ctx).Errorf("State %s is already registered", state)
		return "", "", ErrRegistrationFailed
	}

	return state, nonce, nil
}

func (r *memoryRegistry) Validate(ctx context.Context, state, nonce string) bool {
	entry, ok := r.entries.LoadAndDelete(state)
	if !ok {
		return false
	}

	if entry.expired(r.now()) {
		xcontext.Logger(ctx).Debugf("State %s expired at %s", state, entry.ExpiresAt)
		return false
	}

	return nonce == "" || nonce == entry.Nonce
}

func (r *memoryRegistry) Sweep(ctx context.Context) int {
	now := r.now()

	var expired []string
	r.entries.Range(func(state string, entry Entry) bool {
		if entry.expired(now) {
			expired = append(expired, state)
		}
		return true
	})

	removed := 0
	for _, state := range expired {
		if _, ok := r.entries.LoadAndDelete(state); ok {
			removed++
		}
	}

	return removed
}
