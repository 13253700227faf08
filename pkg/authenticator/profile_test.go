package authenticator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/api"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func Test_twitchProvider_FetchIdentity_Headers(t *testing.T) {
	headers := map[string]string{}
	var opts []api.Opt
	generator := &api.MockAPIGenerator{}
	generator.MockClient.HeaderFunc = func(name, value string) api.Client {
		headers[name] = value
		return &generator.MockClient
	}
	generator.MockClient.GETFunc = func(_ context.Context, o ...api.Opt) (*api.Response, error) {
		opts = append(opts, o...)
		if len(generator.Calls) == 1 {
			return &api.Response{Code: http.StatusOK, Body: api.JSON{
				"data": []any{map[string]any{"id": "7", "display_name": "Dave", "broadcaster_type": ""}},
			}}, nil
		}

		return &api.Response{Code: http.StatusOK, Body: api.JSON{"sub": "7"}}, nil
	}

	p := NewTwitchProvider(config.OAuth2Config{
		ClientID:     "client",
		ClientSecret: "secret",
	}, oauthstate.NewMemoryRegistry(time.Minute))
	p.apiGenerator = generator

	identity, err := p.FetchIdentity(context.Background(), "at")
	require.NoError(t, err)
	require.Equal(t, "7", identity.ExternalID)
	require.Empty(t, identity.Nonce)
	require.NotContains(t, identity.Claims, "profileImage")

	require.Equal(t, []string{twitchProfileURL, twitchUserInfoURL}, generator.Calls)
	require.Equal(t, map[string]string{"Client-Id": "client"}, headers)
	require.Len(t, opts, 2)

	req, err := http.NewRequest(http.MethodGet, twitchProfileURL, nil)
	require.NoError(t, err)
	opts[0].Do(req)
	require.Equal(t, "Bearer at", req.Header.Get("Authorization"))
}

func Test_oauth2Provider_ExchangeCode_ContextClient(t *testing.T) {
	var calls int
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		require.Equal(t, "https://idp.example.com/token", req.URL.String())

		user, pass, ok := req.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client", user)
		require.Equal(t, "secret", pass)

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
			Body:       io.NopCloser(strings.NewReader("access_token=at&expires_in=60&scope=a+b&id_token=idt")),
			Request:    req,
		}, nil
	})}

	p := NewOAuth2Provider(config.OAuth2Config{
		Name:         "custom",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     "https://idp.example.com/token",
	}, oauthstate.NewMemoryRegistry(time.Minute))

	ctx := xcontext.WithHTTPClient(context.Background(), client)
	tokens, err := p.ExchangeCode(ctx, "code", "https://app/callback")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, "at", tokens.AccessToken)
	require.Equal(t, "idt", tokens.IDToken)
	require.Equal(t, time.Minute, tokens.ExpiresIn)
	require.Equal(t, []string{"a", "b"}, tokens.Scopes)
}
