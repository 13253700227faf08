package repository

import (
	"context"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProviderTokenRepository interface {
	Get(ctx context.Context, userID, provider string) (*entity.ProviderToken, error)

	// Upsert creates the record or overwrites the token fields of the
	// existing (user, provider) record.
	Upsert(ctx context.Context, token *entity.ProviderToken) error

	// GetDue returns records expiring at or before the given time.
	GetDue(ctx context.Context, before time.Time) ([]entity.ProviderToken, error)

	// SaveAll writes every record in a single transaction.
	SaveAll(ctx context.Context, tokens []entity.ProviderToken) error
}

type providerTokenRepository struct{}

func NewProviderTokenRepository() *providerTokenRepository {
	return &providerTokenRepository{}
}

func (r *providerTokenRepository) Get(
	ctx context.Context, userID, provider string,
) (*entity.ProviderToken, error) {
	var result entity.ProviderToken
	err := xcontext.DB(ctx).
		Where("user_id=? AND provider=?", userID, provider).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *providerTokenRepository) Upsert(ctx context.Context, token *entity.ProviderToken) error {
	return xcontext.DB(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "scopes", "expires_at", "updated_at",
			}),
		}).
		Create(token).Error
}

func (r *providerTokenRepository) GetDue(ctx context.Context, before time.Time) ([]entity.ProviderToken, error) {
	var result []entity.ProviderToken
	err := xcontext.DB(ctx).
		Where("expires_at<=?", before).
		Order("expires_at").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *providerTokenRepository) SaveAll(ctx context.Context, tokens []entity.ProviderToken) error {
	if len(tokens) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tokens {
			err := tx.Model(&entity.ProviderToken{}).
				Where("user_id=? AND provider=?", tokens[i].UserID, tokens[i].Provider).
				Updates(map[string]any{
					"access_token":  tokens[i].AccessToken,
					"refresh_token": tokens[i].RefreshToken,
					"scopes":        tokens[i].Scopes,
					"expires_at":    tokens[i].ExpiresAt,
				}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
