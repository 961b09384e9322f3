package models

import (
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/google/uuid"
)

// KitchenTicket aggregates a batch of order items sent to the kitchen
// together. Owned by its order, shared by reference from the items.
type KitchenTicket struct {
	ID      uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID          `gorm:"column:id_order;type:uuid;not null;index"`
	Status  enums.TicketStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Lifecycle
}

func (KitchenTicket) TableName() string { return "kitchen_tickets" }
