package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is a sellable dish. Image stores a path reference only; the bytes
// live outside this system. EstimatedTime is minutes of preparation.
type MenuItem struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string             `gorm:"column:name;not null"`
	Ingredients   string             `gorm:"column:ingredients;not null"`
	EstimatedTime int                `gorm:"column:estimated_time;not null"`
	Price         decimal.Decimal    `gorm:"column:price;type:numeric(10,2);not null"`
	Image         *string            `gorm:"column:image"`
	CategoryID    uuid.UUID          `gorm:"column:id_category;type:uuid;not null"`
	Status        enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Lifecycle
}

func (MenuItem) TableName() string { return "menu_items" }
