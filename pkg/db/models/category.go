package models

import "github.com/google/uuid"

// Category groups menu items.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	Lifecycle
}

func (Category) TableName() string { return "categories" }
