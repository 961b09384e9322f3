package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents a restaurant staff member. RoleID is the primary role;
// additional roles may be attached through the user_roles link table and both
// sources contribute to permission resolution.
type User struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	Username     string             `gorm:"column:username;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	RoleID       *uuid.UUID         `gorm:"column:id_role;type:uuid"`
	Status       enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	Lifecycle
}

func (User) TableName() string { return "users" }
