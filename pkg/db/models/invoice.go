package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice finalizes one order. At most one live invoice may exist per order;
// the partial unique index in the schema backs the store-level check.
type Invoice struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID        *uuid.UUID          `gorm:"column:id_client;type:uuid"`
	OrderID         uuid.UUID           `gorm:"column:id_order;type:uuid;not null;index"`
	PaymentMethodID uuid.UUID           `gorm:"column:id_payment_method;type:uuid;not null"`
	AmountPaid      decimal.Decimal     `gorm:"column:amount_paid;type:numeric(10,2);not null"`
	Returned        decimal.Decimal     `gorm:"column:returned;type:numeric(10,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	Status          enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'pagada'"`
	Lifecycle
}

func (Invoice) TableName() string { return "invoices" }
