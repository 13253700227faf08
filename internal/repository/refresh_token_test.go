package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_refreshTokenRepository_Rotate(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx, time.Now())
	repo := repository.NewRefreshTokenRepository()

	require.NoError(t, repo.Create(ctx, &entity.RefreshToken{
		ID:           "rt1",
		Kind:         entity.LocalAuth,
		UserID:       testutil.LocalUser.ID,
		CurrentToken: "hash-a",
		Expiration:   time.Now().Add(time.Hour),
	}))

	record, err := repo.GetByToken(ctx, entity.LocalAuth, "hash-a")
	require.NoError(t, err)
	require.Equal(t, "rt1", record.ID)
	require.False(t, record.PreviousToken.Valid)

	// Kinds are separate record spaces.
	_, err = repo.GetByToken(ctx, entity.SocialAuth, "hash-a")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Rotate(ctx, "rt1", "hash-a", "hash-b"))

	record, err = repo.GetByToken(ctx, entity.LocalAuth, "hash-a")
	require.NoError(t, err)
	require.Equal(t, "hash-b", record.CurrentToken)
	require.Equal(t, sql.NullString{String: "hash-a", Valid: true}, record.PreviousToken)

	// A stale expected token loses the compare-and-set.
	require.ErrorIs(t, repo.Rotate(ctx, "rt1", "hash-a", "hash-c"), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, "rt1"))
	_, err = repo.GetByToken(ctx, entity.LocalAuth, "hash-b")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func Test_refreshTokenRepository_DeleteExpired(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx, time.Now())
	repo := repository.NewRefreshTokenRepository()
	now := time.Now()

	for i, exp := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)} {
		require.NoError(t, repo.Create(ctx, &entity.RefreshToken{
			ID:           []string{"old", "edge", "fresh"}[i],
			Kind:         entity.SocialAuth,
			UserID:       testutil.SocialUser.ID,
			CurrentToken: []string{"h1", "h2", "h3"}[i],
			Expiration:   exp,
		}))
	}

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = repo.GetByToken(ctx, entity.SocialAuth, "h3")
	require.NoError(t, err)
}
