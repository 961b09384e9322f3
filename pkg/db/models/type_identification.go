package models

import "github.com/google/uuid"

// TypeIdentification is the document-type catalog (cedula, passport, NIT).
type TypeIdentification struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name string    `gorm:"column:name;not null;uniqueIndex"`
	Lifecycle
}

func (TypeIdentification) TableName() string { return "type_identification" }
