package models

import "github.com/google/uuid"

// PaymentMethod is a billing catalog row. DeferredSettlement marks methods
// (house accounts, vouchers) that may settle below the invoice total.
type PaymentMethod struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string    `gorm:"column:name;not null;uniqueIndex"`
	DeferredSettlement bool      `gorm:"column:deferred_settlement;not null;default:false"`
	Lifecycle
}

func (PaymentMethod) TableName() string { return "payment_method" }
