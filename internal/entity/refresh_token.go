package entity

import (
	"database/sql"
	"time"
)

// RefreshToken holds the state of one session. Tokens are stored hashed,
// the plaintext only exists in the credential handed to the client.
type RefreshToken struct {
	ID     string   `gorm:"primarykey;size:36"`
	Kind   AuthKind `gorm:"uniqueIndex:idx_refresh_tokens_kind_current,priority:1;size:16"`
	UserID string   `gorm:"index;size:36"`
	User   User     `gorm:"foreignKey:UserID"`

	CurrentToken  string         `gorm:"uniqueIndex:idx_refresh_tokens_kind_current,priority:2;size:64"`
	PreviousToken sql.NullString `gorm:"index;size:64"`
	Expiration    time.Time      `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *RefreshToken) HasExpired(now time.Time) bool {
	return !now.Before(t.Expiration)
}
