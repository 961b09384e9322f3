package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
)

// Table is a seating unit. AssignedUserID points at the serving staff member;
// it may stay set on an available table (pre-assignment) and only the table
// lifecycle operations are allowed to change Status.
type Table struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string            `gorm:"column:name;not null"`
	Capacity       int               `gorm:"column:capacity;not null"`
	LocationID     uuid.UUID         `gorm:"column:id_location;type:uuid;not null"`
	Status         enums.TableStatus `gorm:"column:status;type:text;not null;default:'available'"`
	AssignedUserID *uuid.UUID        `gorm:"column:id_assigned_user;type:uuid"`
	Lifecycle
}

func (Table) TableName() string { return "tables" }
