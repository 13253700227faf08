package authenticator

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
	"golang.org/x/oauth2/twitch"
)

var (
	googleEndpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}

	spotifyEndpoint = spotify.Endpoint

	// Twitch rejects client credentials sent in the Authorization header.
	twitchEndpoint = oauth2.Endpoint{
		AuthURL:   twitch.Endpoint.AuthURL,
		TokenURL:  twitch.Endpoint.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}

	discordEndpoint = oauth2.Endpoint{
		AuthURL:  "https://discord.com/oauth2/authorize",
		TokenURL: "https://discord.com/api/oauth2/token",
	}
)

const (
	spotifyProfileURL = "https://api.spotify.com/v1/me"
	twitchUserInfoURL = "https://id.twitch.tv/oauth2/userinfo"
	twitchProfileURL  = "https://api.twitch.tv/helix/users"
	discordProfileURL = "https://discord.com/api/users/@me"
	discordAvatarURL  = "https://cdn.discordapp.com/avatars/%s/%s.png"
)
