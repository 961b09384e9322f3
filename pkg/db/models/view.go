package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
)

// View is a path-addressed permission resource.
type View struct {
	ID     uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name   string             `gorm:"column:name;not null;uniqueIndex"`
	Path   string             `gorm:"column:path;not null;uniqueIndex"`
	Status enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Lifecycle
}

func (View) TableName() string { return "views" }
