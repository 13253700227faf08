package testutil

import (
	"context"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

var (
	LocalUser = &entity.User{
		Base:     entity.Base{ID: "local-user"},
		Name:     "Local User",
		Email:    "local@example.com",
		AuthKind: entity.LocalAuth,
	}

	SocialUser = &entity.User{
		Base:           entity.Base{ID: "social-user"},
		Name:           "Social User",
		Email:          "social@example.com",
		AuthKind:       entity.SocialAuth,
		Provider:       "spotify",
		ProviderUserID: "spotify-42",
	}
)

// CreateFixtureDb inserts the fixture users and a provider token of
// SocialUser expiring at expiresAt.
func CreateFixtureDb(ctx context.Context, expiresAt time.Time) {
	for _, u := range []*entity.User{LocalUser, SocialUser} {
		user := *u
		if err := xcontext.DB(ctx).Create(&user).Error; err != nil {
			panic(err)
		}
	}

	err := xcontext.DB(ctx).Create(&entity.ProviderToken{
		UserID:       SocialUser.ID,
		Provider:     SocialUser.Provider,
		AccessToken:  "provider-access",
		RefreshToken: "provider-refresh",
		Scopes:       entity.Array[string]{"user-read-email"},
		ExpiresAt:    expiresAt,
	}).Error
	if err != nil {
		panic(err)
	}
}
