package enums

import "fmt"

// InvoiceStatus keeps the legacy Spanish billing states.
type InvoiceStatus string

const (
	InvoiceStatusPagada  InvoiceStatus = "pagada"
	InvoiceStatusAnulada InvoiceStatus = "anulada"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPagada,
	InvoiceStatusAnulada,
}

// String implements fmt.Stringer.
func (i InvoiceStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (i InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
