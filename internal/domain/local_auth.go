package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/internal/model"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/password"
	"github.com/questx-lab/authserver/pkg/validator"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
)

type LocalAuthDomain interface {
	Register(context.Context, *model.RegisterRequest) (*model.RegisterResponse, error)
	Login(context.Context, *model.LoginRequest) (*model.LoginResponse, error)
	RefreshAccessToken(context.Context, *model.RefreshTokenRequest) (*model.RefreshTokenResponse, error)
}

type localAuthDomain struct {
	userRepo       repository.UserRepository
	hasher         password.Hasher
	passwordPolicy validator.PasswordPolicy
	session        *sessionDomain
}

func NewLocalAuthDomain(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	issuer *authenticator.CredentialIssuer,
	hasher password.Hasher,
	passwordPolicy validator.PasswordPolicy,
) *localAuthDomain {
	return &localAuthDomain{
		userRepo:       userRepo,
		hasher:         hasher,
		passwordPolicy: passwordPolicy,
		session:        newSessionDomain(entity.LocalAuth, refreshTokenRepo, issuer),
	}
}

func (d *localAuthDomain) Register(
	ctx context.Context, req *model.RegisterRequest,
) (*model.RegisterResponse, error) {
	if isBlank(req.Name) || isBlank(req.Email) || isBlank(req.Password) {
		return nil, errorx.New(errorx.FailedPrecondition, "One or more fields are empty")
	}

	if err := validator.Email(req.Email); err != nil {
		return nil, errorx.New(errorx.FailedPrecondition, err.Error())
	}

	if err := d.passwordPolicy.Validate(req.Password); err != nil {
		return nil, errorx.New(errorx.FailedPrecondition, err.Error())
	}

	exists, err := d.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check the existence of email: %v", err)
		return nil, errorx.Unknown
	}

	if exists {
		return nil, errorx.New(errorx.AlreadyExists, "Email address already in use")
	}

	salt, hash, err := d.hasher.Hash(ctx, req.Password)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot hash password: %v", err)
		return nil, errorx.Unknown
	}

	err = d.userRepo.Create(ctx, &entity.User{
		Base:         entity.Base{ID: uuid.NewString()},
		Name:         req.Name,
		Email:        req.Email,
		AuthKind:     entity.LocalAuth,
		PasswordSalt: salt,
		PasswordHash: hash,
	})
	if err != nil {
		// Lost a race with another registration of the same email.
		if exists, existsErr := d.userRepo.ExistsByEmail(ctx, req.Email); existsErr == nil && exists {
			return nil, errorx.New(errorx.AlreadyExists, "Email address already in use")
		}

		xcontext.Logger(ctx).Errorf("Cannot create user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.RegisterResponse{}, nil
}

func (d *localAuthDomain) Login(
	ctx context.Context, req *model.LoginRequest,
) (*model.LoginResponse, error) {
	if isBlank(req.Email) || isBlank(req.Password) {
		return nil, errorx.New(errorx.FailedPrecondition, "Empty username or password")
	}

	if err := validator.Email(req.Email); err != nil {
		return nil, errorx.New(errorx.FailedPrecondition, err.Error())
	}

	user, err := d.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid username or password")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	if user.AuthKind != entity.LocalAuth {
		return nil, errorx.New(errorx.Unauthenticated, "Invalid username or password")
	}

	ok, err := d.hasher.Compare(ctx, req.Password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot compare password of user %s: %v", user.ID, err)
		return nil, errorx.Unknown
	}

	if !ok {
		return nil, errorx.New(errorx.Unauthenticated, "Invalid username or password")
	}

	credential, err := d.session.issue(ctx, localIdentity(user))
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{Credential: *credential}, nil
}

func (d *localAuthDomain) RefreshAccessToken(
	ctx context.Context, req *model.RefreshTokenRequest,
) (*model.RefreshTokenResponse, error) {
	credential, err := d.session.refresh(ctx, req.RefreshToken, d.loadIdentity)
	if err != nil {
		return nil, err
	}

	return &model.RefreshTokenResponse{Credential: *credential}, nil
}

func (d *localAuthDomain) loadIdentity(ctx context.Context, userID string) (*authenticator.Identity, error) {
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidRefreshToken
		}

		xcontext.Logger(ctx).Errorf("Cannot get user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	identity := localIdentity(user)
	return &identity, nil
}

func localIdentity(user *entity.User) authenticator.Identity {
	return authenticator.Identity{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		ProfileImage: user.ProfilePicture,
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
