package domain

import (
	"context"
	"testing"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/password"
	"github.com/questx-lab/authserver/pkg/validator"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, ctx context.Context) *authenticator.CredentialIssuer {
	issuer, err := authenticator.NewCredentialIssuer(xcontext.Configs(ctx).Auth)
	require.NoError(t, err)
	return issuer
}

func newTestLocalAuthDomain(t *testing.T, ctx context.Context) *localAuthDomain {
	hasher, err := password.NewArgon2Hasher(password.Config{
		Memory:      1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	return NewLocalAuthDomain(
		repository.NewUserRepository(),
		repository.NewRefreshTokenRepository(),
		newTestIssuer(t, ctx),
		hasher,
		validator.NewPasswordPolicy(config.Default().Auth.Password),
	)
}
