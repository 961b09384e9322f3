package models

import (
	"time"

	"github.com/google/uuid"
)

// InformationCompany is the business identity singleton printed on invoices.
// Exactly one live row exists and it is never soft-deleted, so it carries no
// tombstone columns.
type InformationCompany struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	TaxID     string    `gorm:"column:tax_id;not null"`
	Address   string    `gorm:"column:address;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Email     string    `gorm:"column:email;not null"`
	Version   int       `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InformationCompany) TableName() string { return "information_company" }
