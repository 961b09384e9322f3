package enums

import "fmt"

// TicketStatus tracks a kitchen ticket through preparation.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusPreparing TicketStatus = "preparing"
	TicketStatusReady     TicketStatus = "ready"
	TicketStatusDelivered TicketStatus = "delivered"
	TicketStatusCancelled TicketStatus = "cancelled"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusPreparing,
	TicketStatusReady,
	TicketStatusDelivered,
	TicketStatusCancelled,
}

// ticketEdges is strictly forward-only; no state may be skipped and
// cancellation is closed once preparation has finished.
var ticketEdges = map[TicketStatus][]TicketStatus{
	TicketStatusPending:   {TicketStatusPreparing, TicketStatusCancelled},
	TicketStatusPreparing: {TicketStatusReady, TicketStatusCancelled},
	TicketStatusReady:     {TicketStatusDelivered},
}

// String implements fmt.Stringer.
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TicketStatus.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the ticket state machine permits the move.
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	for _, candidate := range ticketEdges[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
