package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a dining order for one table. TotalValue is recomputed atomically
// with every item mutation and equals the sum of quantity x price_at_order
// over live items.
type Order struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TableID         uuid.UUID         `gorm:"column:id_table;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'created'"`
	CreatedByUserID uuid.UUID         `gorm:"column:id_created_by;type:uuid;not null"`
	TotalValue      decimal.Decimal   `gorm:"column:total_value;type:numeric(10,2);not null"`
	Lifecycle
}

func (Order) TableName() string { return "orders" }
