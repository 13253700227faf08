package migration

import (
	"context"
	"errors"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
)

type migrator func(ctx context.Context) error

// Append new migrators at the end, never reorder or remove them. The
// version of a migrator is its index plus one.
var migrators = []migrator{
	migrate0000,
	migrate0001,
}

// Migrate applies every migrator newer than the recorded version, each one
// in its own transaction.
func Migrate(ctx context.Context) error {
	if err := xcontext.DB(ctx).AutoMigrate(&entity.Migration{}); err != nil {
		return err
	}

	current, err := currentVersion(ctx)
	if err != nil {
		return err
	}

	for i := current; i < len(migrators); i++ {
		version := i + 1
		err := xcontext.DB(ctx).Transaction(func(tx *gorm.DB) error {
			txCtx := xcontext.WithDB(ctx, tx)
			if err := migrators[i](txCtx); err != nil {
				return err
			}

			return tx.Create(&entity.Migration{Version: version, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return err
		}

		xcontext.Logger(ctx).Infof("Applied migration %04d", version)
	}

	return nil
}

func currentVersion(ctx context.Context) (int, error) {
	var last entity.Migration
	err := xcontext.DB(ctx).Order("version DESC").Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return last.Version, nil
}
