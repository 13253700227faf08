package authenticator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/api"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// oauth2Provider talks to a standard OAuth2/OIDC provider. The other
// variants embed it and override what differs.
type oauth2Provider struct {
	name   string
	cfg    config.OAuth2Config
	oauth2 oauth2.Config

	states       oauthstate.Registry
	apiGenerator api.Generator

	authParams      []oauth2.AuthCodeOption
	describeFailure func(grantType string, err *oauth2.RetrieveError) string
}

func NewOAuth2Provider(cfg config.OAuth2Config, states oauthstate.Registry) *oauth2Provider {
	return newOAuth2Provider(cfg.Name, cfg, oauth2.Endpoint{
		AuthURL:  cfg.AuthorizationURL,
		TokenURL: cfg.TokenURL,
	}, states)
}

func newOAuth2Provider(
	name string, cfg config.OAuth2Config, endpoint oauth2.Endpoint, states oauthstate.Registry,
) *oauth2Provider {
	if cfg.AuthorizationURL != "" {
		endpoint.AuthURL = cfg.AuthorizationURL
	}

	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	// Credentials go in the Authorization header unless the variant says
	// otherwise, so no auth style probing happens against the endpoint.
	if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		endpoint.AuthStyle = oauth2.AuthStyleInHeader
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &oauth2Provider{
		name: name,
		cfg:  cfg,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		states:       states,
		apiGenerator: api.NewGenerator(),
	}
}

func (p *oauth2Provider) Name() string {
	return p.name
}

func (p *oauth2Provider) BuildAuthorizationURL(
	ctx context.Context, redirectURL string, tier ScopeTier,
) (string, error) {
	state, nonce, err := p.states.Register(ctx)
	if err != nil {
		return "", err
	}

	// Copy so concurrent calls do not share the redirect url and scopes.
	cfg := p.oauth2
	cfg.RedirectURL = redirectURL
	cfg.Scopes = p.cfg.Scopes
	if tier == ExtendedScopes && len(p.cfg.ExtendedScopes) > 0 {
		cfg.Scopes = p.cfg.ExtendedScopes
	}

	opts := append([]oauth2.AuthCodeOption{oauth2.SetAuthURLParam("nonce", nonce)}, p.authParams...)
	return cfg.AuthCodeURL(state, opts...), nil
}

func (p *oauth2Provider) ExchangeCode(ctx context.Context, code, redirectURL string) (*Tokens, error) {
	ctx, cancel := p.tokenContext(ctx)
	defer cancel()

	cfg := p.oauth2
	cfg.RedirectURL = redirectURL

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, p.exchangeError(grantAuthorizationCode, err)
	}

	return p.parseToken(token)
}

func (p *oauth2Provider) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	ctx, cancel := p.tokenContext(ctx)
	defer cancel()

	token, err := p.oauth2.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, p.exchangeError(grantRefreshToken, err)
	}

	return p.parseToken(token)
}

func (p *oauth2Provider) FetchIdentity(ctx context.Context, token string) (*Identity, error) {
	body, err := p.getProfile(ctx, p.cfg.UserInfoURL, token)
	if err != nil {
		return nil, err
	}

	var profile struct {
		Sub     string `mapstructure:"sub"`
		Name    string `mapstructure:"name"`
		Email   string `mapstructure:"email"`
		Picture string `mapstructure:"picture"`
		Nonce   string `mapstructure:"nonce"`
	}
	if err := p.decodeProfile(body, &profile); err != nil {
		return nil, err
	}

	if profile.Sub == "" {
		return nil, fmt.Errorf("%w: %s userinfo has no subject", ErrMalformedResponse, p.name)
	}

	return &Identity{
		ExternalID:   profile.Sub,
		Name:         profile.Name,
		Email:        profile.Email,
		ProfileImage: profile.Picture,
		Nonce:        profile.Nonce,
	}, nil
}

// tokenContext bounds a token endpoint call and hands the process http
// client to the oauth2 package.
func (p *oauth2Provider) tokenContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, xcontext.HTTPClient(ctx))
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

func (p *oauth2Provider) exchangeError(grantType string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		body := string(retrieveErr.Body)
		if p.describeFailure != nil {
			body = p.describeFailure(grantType, retrieveErr)
		}

		return &ExchangeError{Provider: p.name, StatusCode: retrieveErr.Response.StatusCode, Body: body}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("cannot call %s token endpoint: %w", p.name, err)
	}

	// The endpoint answered 2xx but the body is not a usable token.
	return fmt.Errorf("%w: %s token response: %v", ErrMalformedResponse, p.name, err)
}

// getProfile calls a profile endpoint with token as bearer and returns the
// json body. Rejected tokens are reported as ErrUnauthenticated.
func (p *oauth2Provider) getProfile(
	ctx context.Context, url, token string, headers ...string,
) (api.JSON, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	client := p.apiGenerator.New(url, "")
	for i := 0; i+1 < len(headers); i += 2 {
		client = client.Header(headers[i], headers[i+1])
	}

	resp, err := client.GET(ctx, api.OAuth2("Bearer", token))
	if err != nil {
		return nil, fmt.Errorf("cannot call %s profile endpoint: %w", p.name, err)
	}

	if resp.Code == http.StatusUnauthorized || resp.Code == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnauthenticated, p.name, resp.Code)
	}

	if !resp.OK() {
		return nil, fmt.Errorf("%s profile endpoint returned status %d: %s", p.name, resp.Code, resp.RawBody)
	}

	body, ok := resp.Body.(api.JSON)
	if !ok {
		return nil, fmt.Errorf("%w: %s profile is not a json object", ErrMalformedResponse, p.name)
	}

	return body, nil
}

func (p *oauth2Provider) decodeProfile(body api.JSON, out any) error {
	if err := mapstructure.WeakDecode(map[string]any(body), out); err != nil {
		return fmt.Errorf("%w: cannot decode %s profile: %v", ErrMalformedResponse, p.name, err)
	}

	return nil
}

func (p *oauth2Provider) parseToken(token *oauth2.Token) (*Tokens, error) {
	var extra struct {
		IDToken   string `mapstructure:"id_token"`
		ExpiresIn int64  `mapstructure:"expires_in"`
	}
	err := mapstructure.WeakDecode(map[string]any{
		"id_token":   token.Extra("id_token"),
		"expires_in": token.Extra("expires_in"),
	}, &extra)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode %s token response: %v", ErrMalformedResponse, p.name, err)
	}

	expiresIn := time.Duration(extra.ExpiresIn) * time.Second
	if expiresIn <= 0 && !token.Expiry.IsZero() {
		expiresIn = time.Until(token.Expiry).Round(time.Second)
	}

	return &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      extra.IDToken,
		ExpiresIn:    expiresIn,
		Scopes:       parseScopes(token.Extra("scope")),
	}, nil
}

// parseScopes accepts both the space separated string of the RFC and the
// json array some providers return.
func parseScopes(scope any) []string {
	switch t := scope.(type) {
	case string:
		return strings.Fields(t)
	case []any:
		scopes := make([]string, 0, len(t))
		for _, s := range t {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}

	return nil
}
