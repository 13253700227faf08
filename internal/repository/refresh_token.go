package repository

import (
	"context"
	"errors"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository works on token hashes, never on the plaintext
// tokens handed to clients.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error

	// GetByToken finds the record whose current or previous token is
	// hashedToken.
	GetByToken(ctx context.Context, kind entity.AuthKind, hashedToken string) (*entity.RefreshToken, error)

	// Rotate moves the current token to previous and stores newToken, but
	// only if the current token is still expectedCurrent. It returns
	// gorm.ErrRecordNotFound when another rotation won the race.
	Rotate(ctx context.Context, id, expectedCurrent, newToken string) error

	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct{}

func NewRefreshTokenRepository() *refreshTokenRepository {
	return &refreshTokenRepository{}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	return xcontext.DB(ctx).Omit(clause.Associations).Create(token).Error
}

func (r *refreshTokenRepository) GetByToken(
	ctx context.Context, kind entity.AuthKind, hashedToken string,
) (*entity.RefreshToken, error) {
	var result entity.RefreshToken
	err := xcontext.DB(ctx).
		Where("kind=? AND (current_token=? OR previous_token=?)", kind, hashedToken, hashedToken).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, id, expectedCurrent, newToken string) error {
	tx := xcontext.DB(ctx).Model(&entity.RefreshToken{}).
		Where("id=? AND current_token=?", id, expectedCurrent).
		Updates(map[string]any{
			"previous_token": expectedCurrent,
			"current_token":  newToken,
		})

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Delete(&entity.RefreshToken{}, "id=?", id).Error
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := xcontext.DB(ctx).Delete(&entity.RefreshToken{}, "expiration<=?", now)
	return tx.RowsAffected, tx.Error
}
