package authenticator

import (
	"context"
	"time"
)

type ScopeTier int

const (
	MinimalScopes ScopeTier = iota
	ExtendedScopes
)

// Provider is the capability set every identity provider exposes to the
// login flows and to the reconciliation loop.
type Provider interface {
	Name() string

	// BuildAuthorizationURL registers a fresh state/nonce pair and returns the
	// url the user agent must be redirected to.
	BuildAuthorizationURL(ctx context.Context, redirectURL string, tier ScopeTier) (string, error)

	ExchangeCode(ctx context.Context, code, redirectURL string) (*Tokens, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Tokens, error)

	// FetchIdentity resolves the user behind token. Depending on the provider
	// token is an access token or an id token.
	FetchIdentity(ctx context.Context, token string) (*Identity, error)
}

// Tokens is the result of a token endpoint exchange.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Scopes       []string

	// ExpiresIn is zero when the provider did not report a lifetime.
	ExpiresIn time.Duration
}

type Identity struct {
	UserID       string
	Name         string
	Email        string
	ProfileImage string
	ExternalID   string

	// Nonce is empty when the provider does not echo one.
	Nonce string

	// Claims are provider specific values copied into the access token.
	Claims map[string]any
}

type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
