package authenticator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"golang.org/x/oauth2"
)

const TwitchProviderName = "twitch"

type twitchProvider struct {
	*oauth2Provider
}

func NewTwitchProvider(cfg config.OAuth2Config, states oauthstate.Registry) *twitchProvider {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = twitchUserInfoURL
	}

	if cfg.ProfileURL == "" {
		cfg.ProfileURL = twitchProfileURL
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "user:read:email"}
	}

	base := newOAuth2Provider(TwitchProviderName, cfg, twitchEndpoint, states)
	base.authParams = []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("force_verify", strconv.FormatBool(cfg.ForceVerify)),
	}
	base.describeFailure = describeTwitchFailure

	return &twitchProvider{oauth2Provider: base}
}

// FetchIdentity reads the user from the Helix api and the nonce from the
// OIDC userinfo endpoint.
func (p *twitchProvider) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	body, err := p.getProfile(ctx, p.cfg.ProfileURL, accessToken, "Client-Id", p.oauth2.ClientID)
	if err != nil {
		return nil, err
	}

	var users struct {
		Data []struct {
			ID              string `mapstructure:"id"`
			DisplayName     string `mapstructure:"display_name"`
			Email           string `mapstructure:"email"`
			ProfileImageURL string `mapstructure:"profile_image_url"`
			BroadcasterType string `mapstructure:"broadcaster_type"`
		} `mapstructure:"data"`
	}
	if err := p.decodeProfile(body, &users); err != nil {
		return nil, err
	}

	if len(users.Data) == 0 {
		return nil, fmt.Errorf("%w: twitch returned no user for the token", ErrUnauthenticated)
	}

	userInfo, err := p.getProfile(ctx, p.cfg.UserInfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	nonce, err := userInfo.GetString("nonce")
	if err != nil {
		// Tokens obtained without the openid scope carry no nonce.
		nonce = ""
	}

	user := users.Data[0]
	identity := &Identity{
		ExternalID:   user.ID,
		Name:         user.DisplayName,
		Email:        user.Email,
		ProfileImage: user.ProfileImageURL,
		Nonce:        nonce,
		Claims:       map[string]any{"broadcasterType": user.BroadcasterType},
	}

	if user.ProfileImageURL != "" {
		identity.Claims["profileImage"] = user.ProfileImageURL
	}

	return identity, nil
}

func describeTwitchFailure(grantType string, err *oauth2.RetrieveError) string {
	switch err.Response.StatusCode {
	case http.StatusBadRequest:
		if grantType == grantRefreshToken {
			return "invalid refresh token"
		}
		return "invalid authorization code"
	case http.StatusUnauthorized:
		return "invalid client id or client secret"
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(err.Body, &body) == nil && (body.Message != "" || body.Error != "") {
		return fmt.Sprintf("unknown error: %s (%s)", body.Message, body.Error)
	}

	return "unknown error: " + string(err.Body)
}
