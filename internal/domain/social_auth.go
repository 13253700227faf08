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
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/validator"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"gorm.io/gorm"
)

const (
	providerClaim = "provider"

	// DefaultProviderTokenLifetime is assumed when a provider does not
	// report expires_in.
	DefaultProviderTokenLifetime = time.Hour
)

type SocialAuthDomain interface {
	InitializeLoginFlow(context.Context, *model.InitializeLoginFlowRequest) (*model.InitializeLoginFlowResponse, error)
	GoogleLogin(context.Context, *model.GoogleLoginRequest) (*model.SocialLoginResponse, error)
	ProviderLogin(context.Context, *model.ProviderLoginRequest) (*model.SocialLoginResponse, error)
	RefreshAccessToken(context.Context, *model.RefreshTokenRequest) (*model.RefreshTokenResponse, error)
}

type socialAuthDomain struct {
	userRepo          repository.UserRepository
	providerTokenRepo repository.ProviderTokenRepository
	providers         *authenticator.Registry
	states            oauthstate.Registry
	session           *sessionDomain
}

func NewSocialAuthDomain(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	providerTokenRepo repository.ProviderTokenRepository,
	issuer *authenticator.CredentialIssuer,
	providers *authenticator.Registry,
	states oauthstate.Registry,
) *socialAuthDomain {
	return &socialAuthDomain{
		userRepo:          userRepo,
		providerTokenRepo: providerTokenRepo,
		providers:         providers,
		states:            states,
		session:           newSessionDomain(entity.SocialAuth, refreshTokenRepo, issuer),
	}
}

func (d *socialAuthDomain) InitializeLoginFlow(
	ctx context.Context, req *model.InitializeLoginFlowRequest,
) (*model.InitializeLoginFlowResponse, error) {
	provider, ok := d.providers.Get(req.Provider)
	if !ok {
		return nil, errorx.New(errorx.FailedPrecondition, "Invalid auth provider")
	}

	if isBlank(req.RedirectURL) {
		return nil, errorx.New(errorx.FailedPrecondition, "Redirect url is empty")
	}

	tier := authenticator.MinimalScopes
	if req.UseExtendedScopes {
		tier = authenticator.ExtendedScopes
	}

	url, err := provider.BuildAuthorizationURL(ctx, req.RedirectURL, tier)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot build authorization url of %s: %v", provider.Name(), err)
		return nil, errorx.Unknown
	}

	return &model.InitializeLoginFlowResponse{AuthorizationURL: url}, nil
}

func (d *socialAuthDomain) GoogleLogin(
	ctx context.Context, req *model.GoogleLoginRequest,
) (*model.SocialLoginResponse, error) {
	if isBlank(req.IDToken) || isBlank(req.State) {
		return nil, errorx.New(errorx.FailedPrecondition, "One or more fields are empty")
	}

	provider, ok := d.providers.Get(authenticator.GoogleProviderName)
	if !ok {
		return nil, errorx.New(errorx.FailedPrecondition, "Invalid auth provider")
	}

	identity, err := provider.FetchIdentity(ctx, req.IDToken)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Cannot verify google id token: %v", err)
		return nil, errorx.New(errorx.Unauthenticated, "Failed to get user info")
	}

	if !d.states.Validate(ctx, req.State, identity.Nonce) {
		return nil, errorx.New(errorx.Unauthenticated, "Failed state/nonce validation")
	}

	credential, err := d.completeLogin(ctx, provider.Name(), identity, nil)
	if err != nil {
		return nil, err
	}

	return &model.SocialLoginResponse{Credential: *credential}, nil
}

func (d *socialAuthDomain) ProviderLogin(
	ctx context.Context, req *model.ProviderLoginRequest,
) (*model.SocialLoginResponse, error) {
	if isBlank(req.Code) || isBlank(req.State) {
		return nil, errorx.New(errorx.FailedPrecondition, "One or more fields are empty")
	}

	if req.Provider == authenticator.GoogleProviderName {
		return nil, errorx.New(errorx.FailedPrecondition, "Google login requires an id token")
	}

	provider, ok := d.providers.Get(req.Provider)
	if !ok {
		return nil, errorx.New(errorx.FailedPrecondition, "Invalid auth provider")
	}

	// A failed callback still burns its state so it cannot be replayed.
	tokens, err := provider.ExchangeCode(ctx, req.Code, req.RedirectURL)
	if err != nil {
		d.states.Validate(ctx, req.State, "")
		xcontext.Logger(ctx).Warnf("Cannot exchange authorization code with %s: %v", provider.Name(), err)
		return nil, errorx.New(errorx.Unauthenticated, "Failed to exchange the authorization code")
	}

	identity, err := provider.FetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		d.states.Validate(ctx, req.State, "")
		xcontext.Logger(ctx).Warnf("Cannot get user info from %s: %v", provider.Name(), err)
		return nil, errorx.New(errorx.Unauthenticated, "Failed to get user info")
	}

	// Providers which do not echo a nonce are validated by state only.
	if !d.states.Validate(ctx, req.State, identity.Nonce) {
		return nil, errorx.New(errorx.Unauthenticated, "Failed state/nonce validation")
	}

	credential, err := d.completeLogin(ctx, provider.Name(), identity, tokens)
	if err != nil {
		return nil, err
	}

	return &model.SocialLoginResponse{Credential: *credential}, nil
}

func (d *socialAuthDomain) RefreshAccessToken(
	ctx context.Context, req *model.RefreshTokenRequest,
) (*model.RefreshTokenResponse, error) {
	credential, err := d.session.refresh(ctx, req.RefreshToken, d.loadIdentity)
	if err != nil {
		return nil, err
	}

	return &model.RefreshTokenResponse{Credential: *credential}, nil
}

// completeLogin finds or creates the user, stores the provider tokens (if
// any) and opens a session, all in one transaction.
func (d *socialAuthDomain) completeLogin(
	ctx context.Context, provider string, identity *authenticator.Identity, tokens *authenticator.Tokens,
) (*model.Credential, error) {
	if err := validator.Email(identity.Email); err != nil {
		return nil, errorx.New(errorx.FailedPrecondition, "The provider did not return a valid email address")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	user, err := d.findOrCreateUser(ctx, provider, identity)
	if err != nil {
		return nil, err
	}

	if tokens != nil {
		if err := d.storeProviderToken(ctx, user.ID, provider, tokens); err != nil {
			return nil, err
		}
	}

	claims := map[string]any{}
	for k, v := range identity.Claims {
		claims[k] = v
	}
	claims[providerClaim] = provider

	credential, err := d.session.issue(ctx, authenticator.Identity{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		ProfileImage: user.ProfilePicture,
		ExternalID:   identity.ExternalID,
		Claims:       claims,
	})
	if err != nil {
		return nil, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit social login: %v", err)
		return nil, errorx.Unknown
	}

	return credential, nil
}

func (d *socialAuthDomain) findOrCreateUser(
	ctx context.Context, provider string, identity *authenticator.Identity,
) (*entity.User, error) {
	user, err := d.userRepo.GetByEmail(ctx, identity.Email)
	if err == nil {
		if user.AuthKind != entity.SocialAuth {
			return nil, errorx.New(errorx.AlreadyExists, "Email address already in use")
		}

		return user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get user by email: %v", err)
		return nil, errorx.Unknown
	}

	user = &entity.User{
		Base:           entity.Base{ID: uuid.NewString()},
		Name:           identity.Name,
		Email:          identity.Email,
		ProfilePicture: identity.ProfileImage,
		AuthKind:       entity.SocialAuth,
		Provider:       provider,
		ProviderUserID: identity.ExternalID,
	}
	if err := d.userRepo.Create(ctx, user); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create social user: %v", err)
		return nil, errorx.Unknown
	}

	return user, nil
}

func (d *socialAuthDomain) storeProviderToken(
	ctx context.Context, userID, provider string, tokens *authenticator.Tokens,
) error {
	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		existing, err := d.providerTokenRepo.Get(ctx, userID, provider)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get provider token: %v", err)
			return errorx.Unknown
		}

		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}

	err := d.providerTokenRepo.Upsert(ctx, &entity.ProviderToken{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tokens.AccessToken,
		RefreshToken: refreshToken,
		Scopes:       tokens.Scopes,
		ExpiresAt:    ProviderTokenExpiry(time.Now(), tokens.ExpiresIn),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot store provider token: %v", err)
		return errorx.Unknown
	}

	return nil
}

// loadIdentity rebuilds a delegated identity from the user record. Users of
// code flow providers are resolved again through their provider so the
// provider claims stay the same as at login.
func (d *socialAuthDomain) loadIdentity(ctx context.Context, userID string) (*authenticator.Identity, error) {
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidRefreshToken
		}

		xcontext.Logger(ctx).Errorf("Cannot get user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	claims := map[string]any{}
	if user.Provider != authenticator.GoogleProviderName {
		providerClaims, err := d.fetchProviderClaims(ctx, user)
		if err != nil {
			return nil, err
		}

		for k, v := range providerClaims {
			claims[k] = v
		}
	}
	claims[providerClaim] = user.Provider

	return &authenticator.Identity{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		ProfileImage: user.ProfilePicture,
		ExternalID:   user.ProviderUserID,
		Claims:       claims,
	}, nil
}

func (d *socialAuthDomain) fetchProviderClaims(ctx context.Context, user *entity.User) (map[string]any, error) {
	token, err := d.providerTokenRepo.Get(ctx, user.ID, user.Provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Unauthenticated, "Failed to find the auth provider access token")
		}

		xcontext.Logger(ctx).Errorf("Cannot get provider token: %v", err)
		return nil, errorx.Unknown
	}

	provider, ok := d.providers.Get(user.Provider)
	if !ok {
		xcontext.Logger(ctx).Warnf("Provider %s of user %s is not configured", user.Provider, user.ID)
		return nil, errorx.New(errorx.Unauthenticated, "Invalid auth provider")
	}

	identity, err := provider.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get user info of %s from %s: %v", user.ID, user.Provider, err)
		return nil, errorx.New(errorx.Unauthenticated, "Failed to get user info")
	}

	return identity.Claims, nil
}

// ProviderTokenExpiry converts a relative provider lifetime into an
// absolute expiry.
func ProviderTokenExpiry(now time.Time, expiresIn time.Duration) time.Time {
	if expiresIn <= 0 {
		expiresIn = DefaultProviderTokenLifetime
	}

	return now.Add(expiresIn)
}
