package model

import "github.com/questx-lab/authserver/internal/entity"

type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	AuthKind       string `json:"auth_kind"`
	Provider       string `json:"provider,omitempty"`
}

func ConvertUser(u *entity.User) User {
	if u == nil {
		return User{}
	}

	return User{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		AuthKind:       string(u.AuthKind),
		Provider:       u.Provider,
	}
}

type GetMeRequest struct{}

type GetMeResponse struct {
	User User `json:"user"`
}
