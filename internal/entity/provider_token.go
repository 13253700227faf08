package entity

import "time"

// ProviderToken is the latest token pair a provider issued for a user.
type ProviderToken struct {
	UserID   string `gorm:"primaryKey;size:36"`
	User     User   `gorm:"foreignKey:UserID"`
	Provider string `gorm:"primaryKey;size:32"`

	AccessToken  string
	RefreshToken string
	Scopes       Array[string]
	ExpiresAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}
