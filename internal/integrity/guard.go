package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/metrics"
)

// Guard enforces referential integrity over the tombstoned schema. Foreign
// keys in the database only see physical rows, so pointing at a soft-deleted
// parent must be rejected here, and soft-deleting a parent must tombstone its
// owned children in the same transaction.
type Guard struct {
	db      *gorm.DB
	metrics *metrics.WorkflowMetrics
}

func NewGuard(db *gorm.DB, m *metrics.WorkflowMetrics) (*Guard, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInternal, "db handle is required")
	}
	return &Guard{db: db, metrics: m}, nil
}

// WithTx rebinds the guard to a transaction handle.
func (g *Guard) WithTx(tx *gorm.DB) *Guard {
	return &Guard{db: tx, metrics: g.metrics}
}

func (g *Guard) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return g.db
	}
	return g.db.WithContext(ctx)
}

// Ref names one foreign key value to validate. A nil ID marks an optional
// reference that is simply skipped.
type Ref struct {
	Table string
	ID    *uuid.UUID
}

// Required builds a Ref for a mandatory foreign key.
func Required(table string, id uuid.UUID) Ref {
	return Ref{Table: table, ID: &id}
}

// Optional builds a Ref for a nullable foreign key.
func Optional(table string, id *uuid.UUID) Ref {
	return Ref{Table: table, ID: id}
}

// CheckRefs verifies that every referenced row exists and is live. All
// failures are collected so the caller sees the full set of dangling
// references at once.
func (g *Guard) CheckRefs(ctx context.Context, refs ...Ref) error {
	var dangling []string
	var failure error
	for _, ref := range refs {
		if ref.ID == nil {
			continue
		}
		live, err := g.existsLive(ctx, ref.Table, *ref.ID)
		if err != nil {
			failure = multierr.Append(failure, err)
			continue
		}
		if !live {
			dangling = append(dangling, fmt.Sprintf("%s/%s", ref.Table, ref.ID))
		}
	}
	if failure != nil {
		return errors.Wrap(errors.CodeDependency, failure, "failed to validate references")
	}
	if len(dangling) > 0 {
		return errors.New(errors.CodeDanglingReference, "referenced records are missing or deleted").
			WithDetails(dangling)
	}
	return nil
}

// Dependent names a child table column that blocks deletion of a parent while
// live rows still point at it.
type Dependent struct {
	Table  string
	Column string
}

// EnsureNotReferenced rejects the deletion of id while any of the dependent
// tables still hold live rows referencing it.
func (g *Guard) EnsureNotReferenced(ctx context.Context, id uuid.UUID, deps ...Dependent) error {
	var holders []string
	for _, dep := range deps {
		var count int64
		err := g.conn(ctx).
			Table(dep.Table).
			Where(fmt.Sprintf("%s = ? AND deleted = ?", dep.Column), id, false).
			Count(&count).Error
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "failed to count dependents")
		}
		if count > 0 {
			holders = append(holders, fmt.Sprintf("%s (%d)", dep.Table, count))
		}
	}
	if len(holders) > 0 {
		return errors.New(errors.CodeReferencedInUse, "record is still referenced by live rows").
			WithDetails(holders)
	}
	return nil
}

// CascadeUserDelete tombstones the rows a user owns: session tokens and the
// extra role attachments. Runs inside the caller's transaction.
func (g *Guard) CascadeUserDelete(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, err := g.cascade(ctx, userID,
		target{table: "tokens", column: "id_user"},
		target{table: "user_roles", column: "id_user"},
	)
	if err != nil {
		return 0, err
	}
	g.metrics.ObserveCascade("users", int(rows))
	return rows, nil
}

// CascadeRoleDelete tombstones the role's attachments on both sides of the
// authorization matrix.
func (g *Guard) CascadeRoleDelete(ctx context.Context, roleID uuid.UUID) (int64, error) {
	rows, err := g.cascade(ctx, roleID,
		target{table: "user_roles", column: "id_role"},
		target{table: "role_views", column: "id_role"},
	)
	if err != nil {
		return 0, err
	}
	g.metrics.ObserveCascade("roles", int(rows))
	return rows, nil
}

// CascadeViewDelete tombstones the grants pointing at a view.
func (g *Guard) CascadeViewDelete(ctx context.Context, viewID uuid.UUID) (int64, error) {
	rows, err := g.cascade(ctx, viewID, target{table: "role_views", column: "id_view"})
	if err != nil {
		return 0, err
	}
	g.metrics.ObserveCascade("views", int(rows))
	return rows, nil
}

// CascadeOrderDelete tombstones the order's lines and kitchen tickets.
func (g *Guard) CascadeOrderDelete(ctx context.Context, orderID uuid.UUID) (int64, error) {
	rows, err := g.cascade(ctx, orderID,
		target{table: "order_items", column: "id_order"},
		target{table: "kitchen_tickets", column: "id_order"},
	)
	if err != nil {
		return 0, err
	}
	g.metrics.ObserveCascade("orders", int(rows))
	return rows, nil
}

type target struct {
	table  string
	column string
}

func (g *Guard) cascade(ctx context.Context, parentID uuid.UUID, targets ...target) (int64, error) {
	now := time.Now().UTC()
	var total int64
	var failure error
	for _, tg := range targets {
		res := g.conn(ctx).
			Table(tg.table).
			Where(fmt.Sprintf("%s = ? AND deleted = ?", tg.column), parentID, false).
			Updates(map[string]any{
				"deleted":    true,
				"deleted_on": now,
				"updated_at": now,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			failure = multierr.Append(failure, fmt.Errorf("%s: %w", tg.table, res.Error))
			continue
		}
		total += res.RowsAffected
	}
	if failure != nil {
		return 0, errors.Wrap(errors.CodeDependency, failure, "cascade delete failed")
	}
	return total, nil
}

func (g *Guard) existsLive(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var count int64
	err := g.conn(ctx).
		Table(table).
		Where("id = ? AND deleted = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%s: %w", table, err)
	}
	return count > 0, nil
}
