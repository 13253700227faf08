package testutil

import (
	"context"
	"time"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/logger"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Config() config.Configs {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Auth.TokenSecret = "secret"
	cfg.Auth.Issuer = "authserver"
	cfg.Auth.Audience = "authserver-test"
	cfg.Auth.AccessToken.Expiration = time.Minute
	cfg.Auth.RefreshToken.Expiration = time.Hour
	cfg.Auth.StateTimeout = time.Minute
	cfg.Cron.MaxConcurrency = 4
	return cfg
}

// MockContextWithoutTables returns a context carrying the test configs, a
// silent logger and an empty in-memory database.
func MockContextWithoutTables() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// Every connection to ":memory:" opens a distinct database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, Config())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)
	return ctx
}

func MockContext() context.Context {
	ctx := MockContextWithoutTables()
	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}
