package authenticator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/crypto"
)

var reservedClaims = map[string]struct{}{
	"sub": {}, "jti": {}, "iss": {}, "aud": {}, "iat": {}, "nbf": {}, "exp": {},
	"name": {}, "email": {},
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Subject   string
	ID        string
	Name      string
	Email     string
	ExpiresAt time.Time
	Extra     map[string]any
}

// CredentialIssuer mints session credentials: a HS256 signed access token
// and an opaque refresh token.
type CredentialIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	expiration time.Duration
	now        func() time.Time
}

func NewCredentialIssuer(cfg config.AuthConfigs) (*CredentialIssuer, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("token signing key is empty")
	}

	if cfg.AccessToken.Expiration <= 0 {
		return nil, errors.New("access token expiration must be positive")
	}

	return &CredentialIssuer{
		secret:     []byte(cfg.TokenSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		expiration: cfg.AccessToken.Expiration,
		now:        time.Now,
	}, nil
}

func (i *CredentialIssuer) Issue(identity Identity) (*Credential, error) {
	now := i.now()
	expiresAt := now.Add(i.expiration)

	claims := jwt.MapClaims{}
	for k, v := range identity.Claims {
		if _, ok := reservedClaims[k]; !ok {
			claims[k] = v
		}
	}

	claims["sub"] = identity.UserID
	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(now)
	claims["nbf"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt)
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	if i.audience != "" {
		claims["aud"] = i.audience
	}
	if identity.Name != "" {
		claims["name"] = identity.Name
	}
	if identity.Email != "" {
		claims["email"] = identity.Email
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("cannot sign access token: %w", err)
	}

	refreshToken, err := crypto.GenerateRandomString()
	if err != nil {
		return nil, fmt.Errorf("cannot generate refresh token: %w", err)
	}

	return &Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (i *CredentialIssuer) Verify(token string) (*AccessClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return i.secret, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if i.issuer != "" && !claims.VerifyIssuer(i.issuer, true) {
		return nil, errors.New("invalid issuer")
	}

	if i.audience != "" && !claims.VerifyAudience(i.audience, true) {
		return nil, errors.New("invalid audience")
	}

	result := &AccessClaims{Extra: map[string]any{}}
	for k, v := range claims {
		switch k {
		case "sub":
			result.Subject, _ = v.(string)
		case "jti":
			result.ID, _ = v.(string)
		case "name":
			result.Name, _ = v.(string)
		case "email":
			result.Email, _ = v.(string)
		case "exp":
			if exp, ok := v.(float64); ok {
				result.ExpiresAt = time.Unix(int64(exp), 0)
			}
		default:
			if _, ok := reservedClaims[k]; !ok {
				result.Extra[k] = v
			}
		}
	}

	if result.Subject == "" {
		return nil, errors.New("access token has no subject")
	}

	return result, nil
}
