package db

import (
	"errors"

	pkgerrors "github.com/dvillamizar/restopos-backend/pkg/errors"
	"gorm.io/gorm"
)

// Translate maps driver-level errors onto the shared taxonomy. notFoundMsg is
// used when the row does not exist.
func Translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "duplicate key")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database error")
}

// IsNotFound reports whether err is the raw GORM missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
