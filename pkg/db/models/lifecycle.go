package models

import "time"

// Lifecycle carries the audit, versioning and tombstone columns shared by
// every mutable entity. Version is the optimistic concurrency token; Deleted
// and DeletedOn form the soft-delete tombstone. Rows are never physically
// removed.
type Lifecycle struct {
	Version   int        `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Deleted   bool       `gorm:"column:deleted;not null;default:false"`
	DeletedOn *time.Time `gorm:"column:deleted_on"`
}

// IsDeleted reports whether the row is tombstoned.
func (l Lifecycle) IsDeleted() bool {
	return l.Deleted
}
