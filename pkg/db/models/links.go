package models

import "github.com/google/uuid"

// UserRoleLink attaches an additional role to a user. Composite primary key;
// soft-deleted in cascade when either parent is soft-deleted.
type UserRoleLink struct {
	UserID uuid.UUID `gorm:"column:id_user;type:uuid;primaryKey"`
	RoleID uuid.UUID `gorm:"column:id_role;type:uuid;primaryKey"`
	Lifecycle
}

func (UserRoleLink) TableName() string { return "user_roles" }

// RoleViewLink is one cell of the authorization matrix.
type RoleViewLink struct {
	RoleID  uuid.UUID `gorm:"column:id_role;type:uuid;primaryKey"`
	ViewID  uuid.UUID `gorm:"column:id_view;type:uuid;primaryKey"`
	Enabled bool      `gorm:"column:enabled;not null;default:false"`
	Lifecycle
}

func (RoleViewLink) TableName() string { return "role_views" }
