package entity

import "github.com/questx-lab/authserver/pkg/enum"

type AuthKind string

var (
	LocalAuth  = enum.New(AuthKind("local"))
	SocialAuth = enum.New(AuthKind("social"))
)

type User struct {
	Base
	Name           string
	Email          string `gorm:"unique;size:255"`
	ProfilePicture string
	AuthKind       AuthKind `gorm:"size:16"`

	// Provider and ProviderUserID are set for users created by a delegated
	// login.
	Provider       string `gorm:"size:32"`
	ProviderUserID string `gorm:"size:255"`

	// Password fields are only set for local users.
	PasswordSalt string
	PasswordHash string
}
