package orders

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

// Service drives the dining workflow: opening an order against a seated
// table, adding priced lines while the kitchen still accepts them, and
// walking the order through its state machine. The running total always
// equals the sum of quantity times captured price over live lines.
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

type OpenInput struct {
	TableID  uuid.UUID
	WaiterID uuid.UUID
}

// Open creates an order for the table, seating it first when it is still
// available. A table already occupied simply receives the new order.
func (s *Service) Open(ctx context.Context, input OpenInput) (*models.Order, error) {
	var opened *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tableStore := store.New[models.Table](tx)
		table, err := tableStore.Get(ctx, input.TableID)
		if err != nil {
			return err
		}
		if table.Status == enums.TableStatusAvailable {
			if _, err := s.tables.AssignInTx(ctx, tx, input.TableID, input.WaiterID); err != nil {
				return err
			}
		} else if err := s.guard.WithTx(tx).CheckRefs(ctx, integrity.Required("users", input.WaiterID)); err != nil {
			return err
		}

		opened = &models.Order{
			ID:              uuid.New(),
			TableID:         input.TableID,
			Status:          enums.OrderStatusCreated,
			CreatedByUserID: input.WaiterID,
			TotalValue:      decimal.Zero,
		}
		return store.New[models.Order](tx).Create(ctx, opened)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, opened.ID.String()), "order opened")
	return opened, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return store.New[models.Order](s.conn).Get(ctx, id)
}

// Items returns the live lines of an order.
func (s *Service) Items(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.conn.WithContext(ctx).
		Where("id_order = ? AND deleted = ?", orderID, false).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to list order items")
	}
	return items, nil
}

type AddItemInput struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int
	Note       *string
}

// AddItem appends a line while the order still accepts items. The menu price
// is captured on the line so later menu updates never rewrite history, and
// the order total is recomputed in the same transaction.
func (s *Service) AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error) {
	if input.Quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	var added *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderStore := store.New[models.Order](tx)
		order, err := orderStore.Get(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsItems() {
			return errors.New(errors.CodeInvalidTransition, "order no longer accepts items")
		}

		item, err := store.New[models.MenuItem](tx).Get(ctx, input.MenuItemID)
		if err != nil {
			if errors.HasCode(err, errors.CodeNotFound) {
				return errors.New(errors.CodeDanglingReference, "menu item is missing or deleted")
			}
			return err
		}
		if item.Status != enums.RecordStatusActive {
			return errors.New(errors.CodeValidation, "menu item is not sellable")
		}

		added = &models.OrderItem{
			ID:           uuid.New(),
			OrderID:      input.OrderID,
			MenuItemID:   input.MenuItemID,
			Quantity:     input.Quantity,
			Note:         input.Note,
			PriceAtOrder: item.Price,
		}
		if err := store.New[models.OrderItem](tx).Create(ctx, added); err != nil {
			return err
		}
		return s.recomputeTotal(ctx, tx, order)
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("orders.add_item")
		}
		return nil, err
	}
	return added, nil
}

// RemoveItem tombstones a line and recomputes the total.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderStore := store.New[models.Order](tx)
		order, err := orderStore.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsItems() {
			return errors.New(errors.CodeInvalidTransition, "order no longer accepts item changes")
		}

		itemStore := store.New[models.OrderItem](tx)
		item, err := itemStore.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if item.OrderID != orderID {
			return errors.New(errors.CodeValidation, "item does not belong to this order")
		}
		if err := itemStore.SoftDelete(ctx, itemID, item.Version); err != nil {
			return err
		}
		return s.recomputeTotal(ctx, tx, order)
	})
	if err != nil && errors.HasCode(err, errors.CodeConflict) {
		s.metrics.IncConflict("orders.remove_item")
	}
	return err
}

// Advance moves an order along its state machine.
func (s *Service) Advance(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown order status")
	}
	var advanced *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderStore := store.New[models.Order](tx)
		order, err := orderStore.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return errors.New(errors.CodeInvalidTransition, "order cannot move to the requested status").
				WithDetails(map[string]string{"from": order.Status.String(), "to": target.String()})
		}
		advanced, err = orderStore.Update(ctx, orderID, order.Version, map[string]any{"status": target})
		return err
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("orders.advance")
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order status changed")
	return advanced, nil
}

// Cancel is a convenience transition into the cancelled terminal state.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.Advance(ctx, orderID, enums.OrderStatusCancelled)
}

// Delete tombstones the order together with its lines and kitchen tickets.
func (s *Service) Delete(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderStore := store.New[models.Order](tx)
		order, err := orderStore.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := orderStore.SoftDelete(ctx, orderID, order.Version); err != nil {
			return err
		}
		_, err = s.guard.WithTx(tx).CascadeOrderDelete(ctx, orderID)
		return err
	})
}

// recomputeTotal rewrites the order total from its live lines under the
// order's version guard, so item writes racing each other serialize on the
// order row.
func (s *Service) recomputeTotal(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	var total decimal.Decimal
	err := tx.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(quantity * price_at_order), 0)
		     FROM order_items
		     WHERE id_order = ? AND deleted = ?`, order.ID, false).
		Scan(&total).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to recompute order total")
	}
	_, err = store.New[models.Order](tx).Update(ctx, order.ID, order.Version, map[string]any{
		"total_value": total,
	})
	return err
}
