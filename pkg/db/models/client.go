package models

import "github.com/google/uuid"

// Client is a billable customer.
type Client struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FullName             string    `gorm:"column:fullname;not null"`
	Address              *string   `gorm:"column:address"`
	PhoneNumber          string    `gorm:"column:phone_number;not null;uniqueIndex"`
	IdentificationNumber string    `gorm:"column:identification_number;not null;uniqueIndex"`
	Email                string    `gorm:"column:email;not null;uniqueIndex"`
	TypeIdentificationID uuid.UUID `gorm:"column:id_type_identification;type:uuid;not null"`
	Lifecycle
}

func (Client) TableName() string { return "clients" }
