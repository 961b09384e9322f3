package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
)

// Store is a soft-delete aware repository over any tombstoned entity. All
// reads exclude deleted rows unless the IncludingDeleted variants are used,
// and all writes are guarded by the entity's version so that concurrent
// writers lose with a conflict instead of silently clobbering each other.
type Store[T any] struct {
	db *gorm.DB
}

func New[T any](db *gorm.DB) *Store[T] {
	return &Store[T]{db: db}
}

// WithTx rebinds the store to a transaction handle.
func (s *Store[T]) WithTx(tx *gorm.DB) *Store[T] {
	return &Store[T]{db: tx}
}

func (s *Store[T]) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return s.db
	}
	return s.db.WithContext(ctx)
}

// Create persists a new entity.
func (s *Store[T]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New(errors.CodeValidation, "entity is required")
	}
	if err := s.conn(ctx).Create(entity).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to create entity")
	}
	return nil
}

// Get fetches a live entity by primary key.
func (s *Store[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := s.conn(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&entity).Error
	if err != nil {
		return nil, db.Translate(err, "entity not found")
	}
	return &entity, nil
}

// GetIncludingDeleted fetches an entity by primary key regardless of its
// tombstone, for historical reads such as invoice line reconstruction.
func (s *Store[T]) GetIncludingDeleted(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := s.conn(ctx).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		return nil, db.Translate(err, "entity not found")
	}
	return &entity, nil
}

// List returns all live entities ordered by creation time.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	var entities []T
	err := s.conn(ctx).
		Where("deleted = ?", false).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to list entities")
	}
	return entities, nil
}

// Update applies the patch to the live entity identified by id, but only if
// its stored version still matches expectedVersion. The version is bumped as
// part of the same statement, so a stale writer observes zero affected rows
// and receives a conflict.
func (s *Store[T]) Update(ctx context.Context, id uuid.UUID, expectedVersion int, patch map[string]any) (*T, error) {
	updates := make(map[string]any, len(patch)+2)
	for column, value := range patch {
		updates[column] = value
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()

	res := s.conn(ctx).
		Model(new(T)).
		Where("id = ? AND deleted = ? AND version = ?", id, false, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(errors.CodeDependency, res.Error, "failed to update entity")
	}
	if res.RowsAffected == 0 {
		return nil, s.staleWriteError(ctx, id)
	}
	return s.Get(ctx, id)
}

// SoftDelete tombstones the live entity identified by id under the same
// version guard as Update. The row survives for historical reads.
func (s *Store[T]) SoftDelete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	now := time.Now().UTC()
	res := s.conn(ctx).
		Model(new(T)).
		Where("id = ? AND deleted = ? AND version = ?", id, false, expectedVersion).
		Updates(map[string]any{
			"deleted":    true,
			"deleted_on": now,
			"updated_at": now,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "failed to delete entity")
	}
	if res.RowsAffected == 0 {
		return s.staleWriteError(ctx, id)
	}
	return nil
}

// ExistsLive reports whether a live row with the given id exists.
func (s *Store[T]) ExistsLive(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := s.conn(ctx).
		Model(new(T)).
		Where("id = ? AND deleted = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "failed to check entity existence")
	}
	return count > 0, nil
}

// staleWriteError distinguishes a version race from a missing or deleted row.
func (s *Store[T]) staleWriteError(ctx context.Context, id uuid.UUID) error {
	live, err := s.ExistsLive(ctx, id)
	if err != nil {
		return err
	}
	if live {
		return errors.New(errors.CodeConflict, "entity was modified concurrently")
	}
	return errors.New(errors.CodeNotFound, "entity not found")
}
