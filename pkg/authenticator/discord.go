package authenticator

import (
	"context"
	"fmt"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/oauthstate"
)

const DiscordProviderName = "discord"

type discordProvider struct {
	*oauth2Provider
}

func NewDiscordProvider(cfg config.OAuth2Config, states oauthstate.Registry) *discordProvider {
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = discordProfileURL
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"identify", "email"}
	}

	return &discordProvider{
		oauth2Provider: newOAuth2Provider(DiscordProviderName, cfg, discordEndpoint, states),
	}
}

func (p *discordProvider) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	body, err := p.getProfile(ctx, p.cfg.ProfileURL, accessToken)
	if err != nil {
		return nil, err
	}

	var user struct {
		ID         string `mapstructure:"id"`
		Username   string `mapstructure:"username"`
		GlobalName string `mapstructure:"global_name"`
		Email      string `mapstructure:"email"`
		Avatar     string `mapstructure:"avatar"`
	}
	if err := p.decodeProfile(body, &user); err != nil {
		return nil, err
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: discord user has no id", ErrMalformedResponse)
	}

	identity := &Identity{
		ExternalID: user.ID,
		Name:       user.GlobalName,
		Email:      user.Email,
	}

	if identity.Name == "" {
		identity.Name = user.Username
	}

	if user.Avatar != "" {
		identity.ProfileImage = fmt.Sprintf(discordAvatarURL, user.ID, user.Avatar)
	}

	return identity, nil
}
