package authenticator

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/oauthstate"
)

const (
	GoogleProviderName = "google"
	googleIssuer       = "https://accounts.google.com"
)

// googleProvider resolves identities from the signed id token instead of a
// userinfo call.
type googleProvider struct {
	*oauth2Provider

	verifier *oidc.IDTokenVerifier
}

// NewGoogleProvider discovers the Google endpoints and signing keys. It
// needs network access to the issuer.
func NewGoogleProvider(
	ctx context.Context, cfg config.OAuth2Config, states oauthstate.Registry,
) (*googleProvider, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = googleIssuer
	}

	discovery, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("cannot discover %s: %w", cfg.Issuer, err)
	}

	return newGoogleProvider(cfg, states, discovery.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newGoogleProvider(
	cfg config.OAuth2Config, states oauthstate.Registry, verifier *oidc.IDTokenVerifier,
) *googleProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	base := newOAuth2Provider(GoogleProviderName, cfg, googleEndpoint, states)
	return &googleProvider{oauth2Provider: base, verifier: verifier}
}

// FetchIdentity verifies the signature, issuer, audience and expiry of the
// id token and returns its claims.
func (p *googleProvider) FetchIdentity(ctx context.Context, idToken string) (*Identity, error) {
	token, err := p.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: cannot decode id token claims: %v", ErrMalformedResponse, err)
	}

	return &Identity{
		ExternalID:   token.Subject,
		Name:         claims.Name,
		Email:        claims.Email,
		ProfileImage: claims.Picture,
		Nonce:        token.Nonce,
	}, nil
}
