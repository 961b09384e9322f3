package permissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/repo"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
)

// Repository exposes the reads needed to resolve a user's permission set.
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListLinkedRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListGrantedPaths(ctx context.Context, roleIDs []uuid.UUID) ([]string, error)
}

type gormRepository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(conn)}
}

func (r *gormRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&user).Error
	if err != nil {
		return nil, db.Translate(err, "user not found")
	}
	return &user, nil
}

func (r *gormRepository) ListLinkedRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.UserRoleLink{}).
		Where("id_user = ? AND deleted = ?", userID, false).
		Pluck("id_role", &ids).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to list role links")
	}
	return ids, nil
}

// ListGrantedPaths returns the paths of every enabled grant whose role and
// view are both live and active.
func (r *gormRepository) ListGrantedPaths(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.DB(ctx).Raw(`
		SELECT DISTINCT v.path
		FROM role_views rv
		JOIN roles r ON r.id = rv.id_role
		JOIN views v ON v.id = rv.id_view
		WHERE rv.id_role IN ?
		  AND rv.enabled = ? AND rv.deleted = ?
		  AND r.deleted = ? AND r.status = ?
		  AND v.deleted = ? AND v.status = ?`,
		roleIDs, true, false, false, enums.RecordStatusActive, false, enums.RecordStatusActive,
	).Scan(&paths).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to list granted paths")
	}
	return paths, nil
}
