package kitchen

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/metrics"
)

// Service batches order lines onto kitchen tickets and walks each ticket
// through preparation. Ticket membership is written once; a line already on a
// ticket never moves to another one.
type Service struct {
	tx      db.TxRunner
	conn    *gorm.DB
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
}

type Params struct {
	Tx      db.TxRunner
	Conn    *gorm.DB
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
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{tx: params.Tx, conn: params.Conn, metrics: params.Metrics, logg: params.Logger}, nil
}

// OpenTicket sends the given unticketed lines of one order to the kitchen as
// a single batch. All requested lines must be live, belong to the order and
// not sit on another ticket already.
func (s *Service) OpenTicket(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) (*models.KitchenTicket, error) {
	if len(itemIDs) == 0 {
		return nil, errors.New(errors.CodeValidation, "a ticket needs at least one item")
	}
	var ticket *models.KitchenTicket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := store.New[models.Order](tx).Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsItems() {
			return errors.New(errors.CodeInvalidTransition, "order is no longer being prepared")
		}

		ticket = &models.KitchenTicket{
			ID:      uuid.New(),
			OrderID: orderID,
			Status:  enums.TicketStatusPending,
		}
		if err := store.New[models.KitchenTicket](tx).Create(ctx, ticket); err != nil {
			return err
		}

		res := tx.WithContext(ctx).
			Model(&models.OrderItem{}).
			Where("id IN ? AND id_order = ? AND id_kitchen_ticket IS NULL AND deleted = ?", itemIDs, orderID, false).
			Update("id_kitchen_ticket", ticket.ID)
		if res.Error != nil {
			return errors.Wrap(errors.CodeDependency, res.Error, "failed to attach items to ticket")
		}
		if res.RowsAffected != int64(len(itemIDs)) {
			return s.explainBatchFailure(ctx, tx, orderID, ticket.ID, itemIDs)
		}
		return nil
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("kitchen.open_ticket")
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "kitchen ticket opened")
	return ticket, nil
}

// explainBatchFailure inspects the requested lines after a partial
// attachment. Missing or deleted lines and lines of another order cannot be
// cured by retrying, so they get their own error kinds; only an interleaved
// writer racing the batch is reported as a conflict.
func (s *Service) explainBatchFailure(ctx context.Context, tx *gorm.DB, orderID, ticketID uuid.UUID, itemIDs []uuid.UUID) error {
	var items []models.OrderItem
	err := tx.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to inspect ticket items")
	}

	byID := make(map[uuid.UUID]models.OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var missing, foreign, ticketed []string
	for _, id := range itemIDs {
		item, found := byID[id]
		switch {
		case !found || item.Deleted:
			missing = append(missing, id.String())
		case item.OrderID != orderID:
			foreign = append(foreign, id.String())
		case item.KitchenTicketID != nil && *item.KitchenTicketID != ticketID:
			ticketed = append(ticketed, id.String())
		}
	}

	switch {
	case len(missing) > 0:
		return errors.New(errors.CodeDanglingReference, "some items do not exist or are deleted").
			WithDetails(map[string][]string{"items": missing})
	case len(foreign) > 0:
		return errors.New(errors.CodeValidation, "some items belong to another order").
			WithDetails(map[string][]string{"items": foreign})
	case len(ticketed) > 0:
		return errors.New(errors.CodeValidation, "some items already sit on a ticket").
			WithDetails(map[string][]string{"items": ticketed})
	}
	return errors.New(errors.CodeConflict, "items changed while the ticket was being opened")
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.KitchenTicket, error) {
	return store.New[models.KitchenTicket](s.conn).Get(ctx, id)
}

// Items returns the live lines batched on a ticket.
func (s *Service) Items(ctx context.Context, ticketID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.conn.WithContext(ctx).
		Where("id_kitchen_ticket = ? AND deleted = ?", ticketID, false).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to list ticket items")
	}
	return items, nil
}

// Advance moves a ticket forward through preparation. Backward moves and
// jumps are rejected.
func (s *Service) Advance(ctx context.Context, ticketID uuid.UUID, target enums.TicketStatus) (*models.KitchenTicket, error) {
	if !target.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown ticket status")
	}
	var advanced *models.KitchenTicket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tickets := store.New[models.KitchenTicket](tx)
		ticket, err := tickets.Get(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.Status.CanTransitionTo(target) {
			return errors.New(errors.CodeInvalidTransition, "ticket cannot move to the requested status").
				WithDetails(map[string]string{"from": ticket.Status.String(), "to": target.String()})
		}
		advanced, err = tickets.Update(ctx, ticketID, ticket.Version, map[string]any{"status": target})
		return err
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("kitchen.advance")
		}
		return nil, err
	}
	return advanced, nil
}
