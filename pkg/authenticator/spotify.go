package authenticator

import (
	"context"
	"fmt"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/oauthstate"
)

const SpotifyProviderName = "spotify"

// spotifyProvider does not echo a nonce, so its logins are validated by
// state only.
type spotifyProvider struct {
	*oauth2Provider
}

func NewSpotifyProvider(cfg config.OAuth2Config, states oauthstate.Registry) *spotifyProvider {
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = spotifyProfileURL
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"user-read-email", "user-read-private"}
	}

	return &spotifyProvider{
		oauth2Provider: newOAuth2Provider(SpotifyProviderName, cfg, spotifyEndpoint, states),
	}
}

func (p *spotifyProvider) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	body, err := p.getProfile(ctx, p.cfg.ProfileURL, accessToken)
	if err != nil {
		return nil, err
	}

	var profile struct {
		ID          string `mapstructure:"id"`
		DisplayName string `mapstructure:"display_name"`
		Email       string `mapstructure:"email"`
		Images      []struct {
			URL string `mapstructure:"url"`
		} `mapstructure:"images"`
	}
	if err := p.decodeProfile(body, &profile); err != nil {
		return nil, err
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("%w: spotify profile has no id", ErrMalformedResponse)
	}

	identity := &Identity{
		ExternalID: profile.ID,
		Name:       profile.DisplayName,
		Email:      profile.Email,
	}

	if len(profile.Images) > 0 {
		identity.ProfileImage = profile.Images[0].URL
	}

	return identity, nil
}
