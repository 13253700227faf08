package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/internal/model"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/crypto"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
)

var (
	errInvalidRefreshToken = errorx.New(errorx.Unauthenticated, "Invalid refresh token")
	errExpiredRefreshToken = errorx.New(errorx.Unauthenticated, "Expired refresh token")
	errBreachDetected      = errorx.New(errorx.Unauthenticated, "Security breach detected")
)

// identityLoader rebuilds the identity embedded in a refreshed credential.
type identityLoader func(ctx context.Context, userID string) (*authenticator.Identity, error)

// sessionDomain implements the refresh token rotation protocol over the
// record space of one auth kind.
type sessionDomain struct {
	kind             entity.AuthKind
	refreshTokenRepo repository.RefreshTokenRepository
	issuer           *authenticator.CredentialIssuer
	now              func() time.Time
}

func newSessionDomain(
	kind entity.AuthKind,
	refreshTokenRepo repository.RefreshTokenRepository,
	issuer *authenticator.CredentialIssuer,
) *sessionDomain {
	return &sessionDomain{
		kind:             kind,
		refreshTokenRepo: refreshTokenRepo,
		issuer:           issuer,
		now:              time.Now,
	}
}

// issue mints a credential and starts a new session record for it.
func (d *sessionDomain) issue(ctx context.Context, identity authenticator.Identity) (*model.Credential, error) {
	credential, err := d.issuer.Issue(identity)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot issue credential: %v", err)
		return nil, errorx.Unknown
	}

	err = d.refreshTokenRepo.Create(ctx, &entity.RefreshToken{
		ID:           uuid.NewString(),
		Kind:         d.kind,
		UserID:       identity.UserID,
		CurrentToken: hashToken(credential.RefreshToken),
		Expiration:   d.now().Add(xcontext.Configs(ctx).Auth.RefreshToken.Expiration),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create refresh token: %v", err)
		return nil, errorx.Unknown
	}

	return convertCredential(credential), nil
}

// refresh redeems token. Every outcome other than a successful rotation
// surfaces as Unauthenticated, a replayed token is only distinguished in
// the logs.
func (d *sessionDomain) refresh(
	ctx context.Context, token string, loadIdentity identityLoader,
) (*model.Credential, error) {
	if token == "" {
		d.observe("invalid")
		return nil, errInvalidRefreshToken
	}

	hashed := hashToken(token)
	record, err := d.refreshTokenRepo.GetByToken(ctx, d.kind, hashed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d.observe("invalid")
			return nil, errInvalidRefreshToken
		}

		xcontext.Logger(ctx).Errorf("Cannot get refresh token: %v", err)
		return nil, errorx.Unknown
	}

	if record.HasExpired(d.now()) {
		d.revoke(ctx, record)
		d.observe("expired")
		return nil, errExpiredRefreshToken
	}

	// Only the previous slot can match here, the token was already redeemed.
	if record.CurrentToken != hashed {
		d.revoke(ctx, record)
		xcontext.Logger(ctx).Warnf("Refresh token reuse detected for %s session %s of user %s",
			d.kind, record.ID, record.UserID)
		d.observe("breach")
		return nil, errBreachDetected
	}

	identity, err := loadIdentity(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	credential, err := d.issuer.Issue(*identity)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot issue credential: %v", err)
		return nil, errorx.Unknown
	}

	err = d.refreshTokenRepo.Rotate(ctx, record.ID, hashed, hashToken(credential.RefreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A concurrent request redeemed the same token first.
			d.revoke(ctx, record)
			xcontext.Logger(ctx).Warnf("Concurrent redemption detected for %s session %s of user %s",
				d.kind, record.ID, record.UserID)
			d.observe("breach")
			return nil, errBreachDetected
		}

		xcontext.Logger(ctx).Errorf("Cannot rotate refresh token: %v", err)
		return nil, errorx.Unknown
	}

	d.observe("rotated")
	return convertCredential(credential), nil
}

func (d *sessionDomain) observe(outcome string) {
	prometheus.RefreshTotal.WithLabelValues(string(d.kind), outcome).Inc()
}

func (d *sessionDomain) revoke(ctx context.Context, record *entity.RefreshToken) {
	if err := d.refreshTokenRepo.Delete(ctx, record.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete refresh token %s: %v", record.ID, err)
	}
}

func hashToken(token string) string {
	return crypto.SHA256([]byte(token))
}

func convertCredential(c *authenticator.Credential) *model.Credential {
	return &model.Credential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
	}
}
