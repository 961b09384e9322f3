package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
)

// Role groups view permissions through the role_views link table.
type Role struct {
	ID     uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name   string             `gorm:"column:name;not null;uniqueIndex"`
	Status enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Lifecycle
}

func (Role) TableName() string { return "roles" }
