package migration

import (
	"context"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

// migrate0001 adds the expiration indexes scanned by the reconciliation job
// to databases created before they were declared on the entities.
func migrate0001(ctx context.Context) error {
	migrator := xcontext.DB(ctx).Migrator()
	for _, idx := range []struct {
		model any
		field string
	}{
		{&entity.ProviderToken{}, "ExpiresAt"},
		{&entity.RefreshToken{}, "Expiration"},
	} {
		if migrator.HasIndex(idx.model, idx.field) {
			continue
		}

		if err := migrator.CreateIndex(idx.model, idx.field); err != nil {
			return err
		}
	}

	return nil
}
