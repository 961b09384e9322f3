package rbac

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
)

// Service administers the authorization matrix: roles, views and the enabled
// grants between them. Deleting a role or view tombstones its attachments in
// the same transaction so the matrix never points at dead rows.
type Service struct {
	tx       db.TxRunner
	conn     *gorm.DB
	guard    *integrity.Guard
	validate *validator.Validate
	logg     *logger.Logger
}

type Params struct {
	Tx     db.TxRunner
	Conn   *gorm.DB
	Guard  *integrity.Guard
	Logger *logger.Logger
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
		tx:       params.Tx,
		conn:     params.Conn,
		guard:    params.Guard,
		validate: validator.New(),
		logg:     params.Logger,
	}, nil
}

func (s *Service) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	if name == "" {
		return nil, errors.New(errors.CodeValidation, "role name is required")
	}
	role := &models.Role{ID: uuid.New(), Name: name, Status: enums.RecordStatusActive}
	if err := store.New[models.Role](s.conn).Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

type ViewInput struct {
	Name string `validate:"required"`
	Path string `validate:"required,startswith=/"`
}

func (s *Service) CreateView(ctx context.Context, input ViewInput) (*models.View, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid view input")
	}
	view := &models.View{ID: uuid.New(), Name: input.Name, Path: input.Path, Status: enums.RecordStatusActive}
	if err := store.New[models.View](s.conn).Create(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// SetGrant writes one cell of the matrix, creating the link on first use and
// flipping its enabled flag afterwards.
func (s *Service) SetGrant(ctx context.Context, roleID, viewID uuid.UUID, enabled bool) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		guard := s.guard.WithTx(tx)
		err := guard.CheckRefs(ctx,
			integrity.Required("roles", roleID),
			integrity.Required("views", viewID),
		)
		if err != nil {
			return err
		}

		res := tx.WithContext(ctx).
			Model(&models.RoleViewLink{}).
			Where("id_role = ? AND id_view = ? AND deleted = ?", roleID, viewID, false).
			Updates(map[string]any{"enabled": enabled, "version": gorm.Expr("version + 1")})
		if res.Error != nil {
			return errors.Wrap(errors.CodeDependency, res.Error, "failed to update grant")
		}
		if res.RowsAffected > 0 {
			return nil
		}

		link := &models.RoleViewLink{RoleID: roleID, ViewID: viewID, Enabled: enabled}
		if err := tx.WithContext(ctx).Create(link).Error; err != nil {
			return db.Translate(err, "grant not found")
		}
		return nil
	})
}

// DeactivateRole keeps the role and its grants but stops them from resolving.
func (s *Service) DeactivateRole(ctx context.Context, roleID uuid.UUID) (*models.Role, error) {
	var deactivated *models.Role
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		roles := store.New[models.Role](tx)
		role, err := roles.Get(ctx, roleID)
		if err != nil {
			return err
		}
		deactivated, err = roles.Update(ctx, roleID, role.Version, map[string]any{
			"status": enums.RecordStatusInactive,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return deactivated, nil
}

// DeleteRole tombstones the role together with its user attachments and
// grants. Users keeping the role as their primary role fall back to their
// remaining attachments at resolution time.
func (s *Service) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		roles := store.New[models.Role](tx)
		role, err := roles.Get(ctx, roleID)
		if err != nil {
			return err
		}
		if err := roles.SoftDelete(ctx, roleID, role.Version); err != nil {
			return err
		}
		_, err = s.guard.WithTx(tx).CascadeRoleDelete(ctx, roleID)
		return err
	})
}

// DeleteView tombstones the view and every grant pointing at it.
func (s *Service) DeleteView(ctx context.Context, viewID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		views := store.New[models.View](tx)
		view, err := views.Get(ctx, viewID)
		if err != nil {
			return err
		}
		if err := views.SoftDelete(ctx, viewID, view.Version); err != nil {
			return err
		}
		_, err = s.guard.WithTx(tx).CascadeViewDelete(ctx, viewID)
		return err
	})
}
