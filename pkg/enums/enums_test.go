package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusCreated, OrderStatusInProcess, true},
		{OrderStatusCreated, OrderStatusCancelled, true},
		{OrderStatusCreated, OrderStatusDelivered, false},
		{OrderStatusInProcess, OrderStatusDelivered, true},
		{OrderStatusInProcess, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusInProcess, false},
		{OrderStatusCancelled, OrderStatusCreated, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusAcceptsItems(t *testing.T) {
	if !OrderStatusCreated.AcceptsItems() || !OrderStatusInProcess.AcceptsItems() {
		t.Fatal("open orders must accept items")
	}
	if OrderStatusDelivered.AcceptsItems() || OrderStatusCancelled.AcceptsItems() {
		t.Fatal("closed orders must not accept items")
	}
}

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		allowed  bool
	}{
		{TicketStatusPending, TicketStatusPreparing, true},
		{TicketStatusPending, TicketStatusReady, false},
		{TicketStatusPending, TicketStatusCancelled, true},
		{TicketStatusPreparing, TicketStatusReady, true},
		{TicketStatusPreparing, TicketStatusCancelled, true},
		{TicketStatusReady, TicketStatusDelivered, true},
		{TicketStatusReady, TicketStatusCancelled, false},
		{TicketStatusDelivered, TicketStatusPreparing, false},
		{TicketStatusDelivered, TicketStatusReady, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseTableStatus("occupied"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseTableStatus("reserved"); err == nil {
		t.Fatal("expected error for unknown table status")
	}
	if _, err := ParseInvoiceStatus("pagada"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("in_process"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseTicketStatus("preparing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseRecordStatus("active"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
