package invoices

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/internal/tables"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/metrics"
)

// Service issues and voids invoices. An invoice freezes the order total at
// issuance time; at most one live invoice exists per order and issuing the
// invoice frees the table unless another order still occupies it.
type Service struct {
	tx      db.TxRunner
	conn    *gorm.DB
	guard   *integrity.Guard
	tables  *tables.Service
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
}

type Params struct {
	Tx      db.TxRunner
	Conn    *gorm.DB
	Guard   *integrity.Guard
	Tables  *tables.Service
	Metrics *metrics.WorkflowMetrics
	Logger  *logger.Logger
}

func NewService(params Params) (*Service, error) {
	if params.Tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction runner is required")
	}
	if params.Conn == nil {
		return nil, errors.New(errors.CodeInternal, "db handle is required")
	}
	if params.Guard == nil {
		return nil, errors.New(errors.CodeInternal, "integrity guard is required")
	}
	if params.Tables == nil {
		return nil, errors.New(errors.CodeInternal, "tables service is required")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{
		tx:      params.Tx,
		conn:    params.Conn,
		guard:   params.Guard,
		tables:  params.Tables,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

type IssueInput struct {
	OrderID         uuid.UUID
	PaymentMethodID uuid.UUID
	ClientID        *uuid.UUID
	AmountPaid      decimal.Decimal
}

// Issue finalizes a delivered order. The payment must cover the frozen total
// unless the payment method settles later (house accounts, vouchers), and
// change is returned when the customer overpays.
func (s *Service) Issue(ctx context.Context, input IssueInput) (*models.Invoice, error) {
	if input.AmountPaid.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "amount paid cannot be negative")
	}
	var invoice *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderStore := store.New[models.Order](tx)
		order, err := orderStore.Get(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return errors.New(errors.CodeInvalidTransition, "only a delivered order can be invoiced").
				WithDetails(map[string]string{"status": order.Status.String()})
		}

		var existing int64
		err = tx.WithContext(ctx).
			Model(&models.Invoice{}).
			Where("id_order = ? AND deleted = ?", input.OrderID, false).
			Count(&existing).Error
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "failed to check for an existing invoice")
		}
		if existing > 0 {
			return errors.New(errors.CodeDuplicateInvoice, "order already has a live invoice")
		}

		// Serializes racing issuers on the order row before any invoice row
		// is written; the loser fails the version guard with a conflict
		// instead of tripping the unique index on id_order.
		if _, err := orderStore.Update(ctx, input.OrderID, order.Version, map[string]any{}); err != nil {
			return err
		}

		guard := s.guard.WithTx(tx)
		err = guard.CheckRefs(ctx,
			integrity.Required("payment_method", input.PaymentMethodID),
			integrity.Optional("clients", input.ClientID),
		)
		if err != nil {
			return err
		}

		method, err := store.New[models.PaymentMethod](tx).Get(ctx, input.PaymentMethodID)
		if err != nil {
			return err
		}

		total := order.TotalValue
		if input.AmountPaid.LessThan(total) && !method.DeferredSettlement {
			return errors.New(errors.CodeInsufficientPayment, "payment does not cover the order total").
				WithDetails(map[string]string{
					"total": total.StringFixed(2),
					"paid":  input.AmountPaid.StringFixed(2),
				})
		}
		returned := input.AmountPaid.Sub(total)
		if returned.IsNegative() {
			returned = decimal.Zero
		}

		invoice = &models.Invoice{
			ID:              uuid.New(),
			OrderID:         input.OrderID,
			PaymentMethodID: input.PaymentMethodID,
			ClientID:        input.ClientID,
			AmountPaid:      input.AmountPaid,
			Returned:        returned,
			Total:           total,
			Status:          enums.InvoiceStatusPagada,
		}
		if err := store.New[models.Invoice](tx).Create(ctx, invoice); err != nil {
			return err
		}

		return s.maybeReleaseTable(ctx, tx, order.TableID)
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("invoices.issue")
		}
		return nil, err
	}
	s.metrics.IncInvoiceIssued()
	s.logg.Info(s.logg.WithOrderID(ctx, input.OrderID.String()), "invoice issued")
	return invoice, nil
}

// maybeReleaseTable frees the table once no live order is still being served
// on it.
func (s *Service) maybeReleaseTable(ctx context.Context, tx *gorm.DB, tableID uuid.UUID) error {
	var active int64
	err := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("id_table = ? AND deleted = ? AND status IN ?",
			tableID, false, []enums.OrderStatus{enums.OrderStatusCreated, enums.OrderStatusInProcess}).
		Count(&active).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to count active orders for table")
	}
	if active > 0 {
		return nil
	}
	if _, err := s.tables.ReleaseInTx(ctx, tx, tableID); err != nil {
		if errors.HasCode(err, errors.CodeInvalidTransition) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return store.New[models.Invoice](s.conn).Get(ctx, id)
}

// Void marks a paid invoice as cancelled. The row stays live so the order
// remains invoiced; issuing a replacement requires deleting the voided
// invoice first.
func (s *Service) Void(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var voided *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoiceStore := store.New[models.Invoice](tx)
		invoice, err := invoiceStore.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != enums.InvoiceStatusPagada {
			return errors.New(errors.CodeInvalidTransition, "only a paid invoice can be voided")
		}
		voided, err = invoiceStore.Update(ctx, invoiceID, invoice.Version, map[string]any{
			"status": enums.InvoiceStatusAnulada,
		})
		return err
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("invoices.void")
		}
		return nil, err
	}
	return voided, nil
}

// Delete tombstones an invoice, freeing the order for a replacement.
func (s *Service) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoiceStore := store.New[models.Invoice](tx)
		invoice, err := invoiceStore.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		return invoiceStore.SoftDelete(ctx, invoiceID, invoice.Version)
	})
}
