package enums

import "fmt"

// OrderStatus tracks the lifecycle of a dining order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusInProcess OrderStatus = "in_process"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusInProcess,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderEdges holds the permitted forward transitions. Cancellation is only
// reachable before delivery; delivered orders are immutable except invoicing.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusInProcess, OrderStatusCancelled},
	OrderStatusInProcess: {OrderStatusDelivered, OrderStatusCancelled},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the order state machine permits the move.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, candidate := range orderEdges[o] {
		if candidate == target {
			return true
		}
	}
	return false
}

// AcceptsItems reports whether order items may still be appended.
func (o OrderStatus) AcceptsItems() bool {
	return o == OrderStatusCreated || o == OrderStatusInProcess
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
