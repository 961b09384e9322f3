package models

import "github.com/google/uuid"

// Location is a seating area of the restaurant (terrace, main hall, bar).
type Location struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Lifecycle
}

func (Location) TableName() string { return "locations" }
