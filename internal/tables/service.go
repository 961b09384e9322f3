package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/metrics"
)

// Service owns the seating lifecycle. Only Assign and Release may change a
// table's status; an available table may keep a pre-assigned waiter from an
// earlier shift without blocking a fresh assignment.
type Service struct {
	tx      db.TxRunner
	conn    *gorm.DB
	guard   *integrity.Guard
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
}

type Params struct {
	Tx      db.TxRunner
	Conn    *gorm.DB
	Guard   *integrity.Guard
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
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{
		tx:      params.Tx,
		conn:    params.Conn,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

type CreateInput struct {
	Name       string
	Capacity   int
	LocationID uuid.UUID
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Table, error) {
	if input.Name == "" || input.Capacity <= 0 {
		return nil, errors.New(errors.CodeValidation, "table name and a positive capacity are required")
	}
	if err := s.guard.CheckRefs(ctx, integrity.Required("locations", input.LocationID)); err != nil {
		return nil, err
	}
	table := &models.Table{
		ID:         uuid.New(),
		Name:       input.Name,
		Capacity:   input.Capacity,
		LocationID: input.LocationID,
		Status:     enums.TableStatusAvailable,
	}
	if err := store.New[models.Table](s.conn).Create(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	return store.New[models.Table](s.conn).Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Table, error) {
	return store.New[models.Table](s.conn).List(ctx)
}

// Assign seats guests at an available table and records the serving waiter.
// Of several concurrent assignments over the same table exactly one wins; the
// rest fail with a table-not-available or conflict error.
func (s *Service) Assign(ctx context.Context, tableID, waiterID uuid.UUID) (*models.Table, error) {
	var assigned *models.Table
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		assigned, err = s.AssignInTx(ctx, tx, tableID, waiterID)
		return err
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeConflict) {
			s.metrics.IncConflict("tables.assign")
		}
		return nil, err
	}
	s.metrics.IncTableAssigned()
	s.logg.Info(s.logg.WithTableID(ctx, tableID.String()), "table assigned")
	return assigned, nil
}

// AssignInTx performs the assignment inside an existing transaction. Opening
// an order seats the table and creates the order as one unit of work.
func (s *Service) AssignInTx(ctx context.Context, tx *gorm.DB, tableID, waiterID uuid.UUID) (*models.Table, error) {
	tables := store.New[models.Table](tx)
	table, err := tables.Get(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != enums.TableStatusAvailable {
		return nil, errors.New(errors.CodeTableNotAvailable, "table is already occupied")
	}
	if err := s.guard.WithTx(tx).CheckRefs(ctx, integrity.Required("users", waiterID)); err != nil {
		return nil, err
	}
	return tables.Update(ctx, tableID, table.Version, map[string]any{
		"status":           enums.TableStatusOccupied,
		"id_assigned_user": waiterID,
	})
}

// Release frees an occupied table and clears the assignment.
func (s *Service) Release(ctx context.Context, tableID uuid.UUID) (*models.Table, error) {
	var released *models.Table
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.releaseInTx(ctx, tx, tableID, &released)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithTableID(ctx, tableID.String()), "table released")
	return released, nil
}

// ReleaseInTx runs the release inside an existing transaction, used when
// invoice issuance frees the table as part of its own unit of work.
func (s *Service) ReleaseInTx(ctx context.Context, tx *gorm.DB, tableID uuid.UUID) (*models.Table, error) {
	var released *models.Table
	if err := s.releaseInTx(ctx, tx, tableID, &released); err != nil {
		return nil, err
	}
	return released, nil
}

func (s *Service) releaseInTx(ctx context.Context, tx *gorm.DB, tableID uuid.UUID, out **models.Table) error {
	tables := store.New[models.Table](tx)
	table, err := tables.Get(ctx, tableID)
	if err != nil {
		return err
	}
	if table.Status != enums.TableStatusOccupied {
		return errors.New(errors.CodeInvalidTransition, "only an occupied table can be released")
	}
	released, err := tables.Update(ctx, tableID, table.Version, map[string]any{
		"status":           enums.TableStatusAvailable,
		"id_assigned_user": nil,
	})
	if err != nil {
		return err
	}
	*out = released
	return nil
}

// Delete tombstones a table once no live orders reference it.
func (s *Service) Delete(ctx context.Context, tableID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tables := store.New[models.Table](tx)
		table, err := tables.Get(ctx, tableID)
		if err != nil {
			return err
		}
		guard := s.guard.WithTx(tx)
		err = guard.EnsureNotReferenced(ctx, tableID, integrity.Dependent{Table: "orders", Column: "id_table"})
		if err != nil {
			return err
		}
		return tables.SoftDelete(ctx, tableID, table.Version)
	})
}
