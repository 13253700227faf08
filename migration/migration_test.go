package migration_test

import (
	"testing"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/migration"
	"github.com/questx-lab/authserver/pkg/testutil"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	ctx := testutil.MockContextWithoutTables()

	require.NoError(t, migration.Migrate(ctx))

	db := xcontext.DB(ctx)
	require.True(t, db.Migrator().HasTable(&entity.User{}))
	require.True(t, db.Migrator().HasTable(&entity.RefreshToken{}))
	require.True(t, db.Migrator().HasTable(&entity.ProviderToken{}))

	var versions []entity.Migration
	require.NoError(t, db.Order("version").Find(&versions).Error)
	require.Len(t, versions, 2)
	require.Equal(t, 1, versions[0].Version)
	require.Equal(t, 2, versions[1].Version)

	// Running again is a no-op.
	require.NoError(t, migration.Migrate(ctx))
	var count int64
	require.NoError(t, db.Model(&entity.Migration{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}
