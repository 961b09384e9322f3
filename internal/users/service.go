package users

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/permissions"
	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/security"
)

// Service manages staff accounts and their role attachments. Deleting a user
// cascades to the rows the user owns (tokens and role attachments) and drops
// the cached permission set; orders the user created keep pointing at the
// tombstoned row for history.
type Service struct {
	tx       db.TxRunner
	conn     *gorm.DB
	guard    *integrity.Guard
	resolver *permissions.Resolver
	password config.PasswordConfig
	validate *validator.Validate
	logg     *logger.Logger
}

type Params struct {
	Tx       db.TxRunner
	Conn     *gorm.DB
	Guard    *integrity.Guard
	Resolver *permissions.Resolver
	Password config.PasswordConfig
	Logger   *logger.Logger
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
		resolver: params.Resolver,
		password: params.Password,
		validate: validator.New(),
		logg:     params.Logger,
	}, nil
}

type CreateInput struct {
	Name     string     `validate:"required"`
	Username string     `validate:"required,min=3"`
	Email    string     `validate:"required,email"`
	Password string     `validate:"required,min=8"`
	RoleID   *uuid.UUID `validate:"-"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid user input")
	}
	if err := s.guard.CheckRefs(ctx, integrity.Optional("roles", input.RoleID)); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to hash password")
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		RoleID:       input.RoleID,
		Status:       enums.RecordStatusActive,
		Active:       true,
	}
	if err := store.New[models.User](s.conn).Create(ctx, user); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user created")
	return user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return store.New[models.User](s.conn).Get(ctx, id)
}

type UpdateInput struct {
	Name   *string `validate:"omitempty,min=1"`
	Email  *string `validate:"omitempty,email"`
	RoleID *uuid.UUID
	Active *bool
}

// Update applies a partial edit. Changing the primary role invalidates the
// cached permission set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid user input")
	}
	if err := s.guard.CheckRefs(ctx, integrity.Optional("roles", input.RoleID)); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		users := store.New[models.User](tx)
		user, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		patch := map[string]any{}
		if input.Name != nil {
			patch["name"] = *input.Name
		}
		if input.Email != nil {
			patch["email"] = *input.Email
		}
		if input.RoleID != nil {
			patch["id_role"] = *input.RoleID
		}
		if input.Active != nil {
			patch["active"] = *input.Active
		}
		updated, err = users.Update(ctx, id, user.Version, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	if input.RoleID != nil && s.resolver != nil {
		s.resolver.Invalidate(ctx, id)
	}
	return updated, nil
}

// AttachRole links an extra role to the user. Attaching an already linked
// role is a no-op; a previously detached link is brought back to life instead
// of colliding with its tombstone.
func (s *Service) AttachRole(ctx context.Context, userID, roleID uuid.UUID) error {
	err := s.guard.CheckRefs(ctx,
		integrity.Required("users", userID),
		integrity.Required("roles", roleID),
	)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var live int64
		err := tx.WithContext(ctx).
			Model(&models.UserRoleLink{}).
			Where("id_user = ? AND id_role = ? AND deleted = ?", userID, roleID, false).
			Count(&live).Error
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "failed to check role link")
		}
		if live > 0 {
			return nil
		}

		res := tx.WithContext(ctx).
			Model(&models.UserRoleLink{}).
			Where("id_user = ? AND id_role = ? AND deleted = ?", userID, roleID, true).
			Updates(map[string]any{"deleted": false, "deleted_on": nil, "version": gorm.Expr("version + 1")})
		if res.Error != nil {
			return errors.Wrap(errors.CodeDependency, res.Error, "failed to restore role link")
		}
		if res.RowsAffected > 0 {
			return nil
		}

		link := &models.UserRoleLink{UserID: userID, RoleID: roleID}
		if err := tx.WithContext(ctx).Create(link).Error; err != nil {
			return db.Translate(err, "role link not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, userID)
	}
	return nil
}

// DetachRole tombstones a role attachment.
func (s *Service) DetachRole(ctx context.Context, userID, roleID uuid.UUID) error {
	res := s.conn.WithContext(ctx).
		Model(&models.UserRoleLink{}).
		Where("id_user = ? AND id_role = ? AND deleted = ?", userID, roleID, false).
		Updates(map[string]any{"deleted": true, "deleted_on": gorm.Expr("CURRENT_TIMESTAMP"), "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "failed to detach role")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "role link not found")
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, userID)
	}
	return nil
}

// Delete tombstones the user and cascades to the user's tokens and role
// attachments in the same transaction. Orders created by the user survive.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		users := store.New[models.User](tx)
		user, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := users.SoftDelete(ctx, id, user.Version); err != nil {
			return err
		}
		_, err = s.guard.WithTx(tx).CascadeUserDelete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, id)
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user deleted")
	return nil
}
