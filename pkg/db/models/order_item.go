package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one menu line of an order. PriceAtOrder is captured when the
// item is added and never changes afterwards; menu price updates must not
// rewrite history. KitchenTicketID is set once when the item is batched onto
// a ticket and is immutable from then on.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:id_order;type:uuid;not null;index"`
	MenuItemID      uuid.UUID       `gorm:"column:id_menu_item;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	Note            *string         `gorm:"column:note"`
	PriceAtOrder    decimal.Decimal `gorm:"column:price_at_order;type:numeric(10,2);not null"`
	KitchenTicketID *uuid.UUID      `gorm:"column:id_kitchen_ticket;type:uuid;index"`
	Lifecycle
}

func (OrderItem) TableName() string { return "order_items" }
