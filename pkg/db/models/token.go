package models

import (
	"time"

	"github.com/google/uuid"
)

// Token is a persisted session credential. StatusToken false means revoked.
// Tokens are soft-deleted in cascade when their user is soft-deleted.
type Token struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:id_user;type:uuid;not null;index"`
	Token       string    `gorm:"column:token;not null"`
	StatusToken bool      `gorm:"column:status_token;not null;default:true"`
	Expiration  time.Time `gorm:"column:expiration;not null"`
	Lifecycle
}

func (Token) TableName() string { return "tokens" }

// Valid reports whether the token can still authenticate at the given time.
func (t Token) Valid(now time.Time) bool {
	return !t.Deleted && t.StatusToken && now.Before(t.Expiration)
}
