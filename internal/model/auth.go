package model

import "time"

type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Local Register
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct{}

// Local Login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Credential
}

// Refresh, used by both local and social sessions.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Credential
}

// Social login flow
type InitializeLoginFlowRequest struct {
	Provider          string `json:"provider"`
	RedirectURL       string `json:"redirect_url"`
	UseExtendedScopes bool   `json:"use_extended_scopes"`
}

type InitializeLoginFlowResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
	State   string `json:"state"`
}

type ProviderLoginRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURL string `json:"redirect_url"`
}

type SocialLoginResponse struct {
	Credential
}
