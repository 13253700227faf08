package authenticator

import (
	"context"
	"fmt"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}

	return r
}

// NewRegistryFromConfig builds every enabled provider.
func NewRegistryFromConfig(
	ctx context.Context, cfg config.AuthConfigs, states oauthstate.Registry,
) (*Registry, error) {
	var providers []Provider
	if cfg.Google.Enabled {
		google, err := NewGoogleProvider(ctx, cfg.Google, states)
		if err != nil {
			return nil, err
		}
		providers = append(providers, google)
	}

	if cfg.Spotify.Enabled {
		providers = append(providers, NewSpotifyProvider(cfg.Spotify, states))
	}

	if cfg.Twitch.Enabled {
		providers = append(providers, NewTwitchProvider(cfg.Twitch, states))
	}

	if cfg.Discord.Enabled {
		providers = append(providers, NewDiscordProvider(cfg.Discord, states))
	}

	registry := NewRegistry(providers...)
	for _, custom := range cfg.Custom {
		if !custom.Enabled {
			continue
		}

		if _, ok := registry.providers[custom.Name]; ok {
			return nil, fmt.Errorf("provider %s is configured twice", custom.Name)
		}
		registry.providers[custom.Name] = NewOAuth2Provider(custom, states)
	}

	return registry, nil
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names in alphabetical order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.providers)
	slices.Sort(names)
	return names
}
