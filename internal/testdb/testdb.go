package testdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

// Runner adapts a plain GORM handle to the transaction surface services
// expect.
type Runner struct {
	DB *gorm.DB
}

func (r Runner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// Open returns an isolated in-memory database carrying the full schema in
// sqlite dialect. Tests set primary keys explicitly since sqlite has no
// gen_random_uuid().
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

var schema = []string{
	`CREATE TABLE roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE views (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		id_role TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		active BOOLEAN NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE user_roles (
		id_user TEXT NOT NULL,
		id_role TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME,
		PRIMARY KEY (id_user, id_role)
	)`,
	`CREATE TABLE role_views (
		id_role TEXT NOT NULL,
		id_view TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME,
		PRIMARY KEY (id_role, id_view)
	)`,
	`CREATE TABLE tokens (
		id TEXT PRIMARY KEY,
		id_user TEXT NOT NULL,
		token TEXT NOT NULL,
		status_token BOOLEAN NOT NULL DEFAULT 1,
		expiration DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE tables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		id_location TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		id_assigned_user TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE menu_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ingredients TEXT NOT NULL,
		estimated_time INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		image TEXT,
		id_category TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE type_identification (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE clients (
		id TEXT PRIMARY KEY,
		fullname TEXT NOT NULL,
		address TEXT,
		phone_number TEXT NOT NULL UNIQUE,
		identification_number TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		id_type_identification TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE payment_method (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		deferred_settlement BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		id_table TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'created',
		id_created_by TEXT NOT NULL,
		total_value NUMERIC NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		id_order TEXT NOT NULL,
		id_menu_item TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		note TEXT,
		price_at_order NUMERIC NOT NULL,
		id_kitchen_ticket TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE kitchen_tickets (
		id TEXT PRIMARY KEY,
		id_order TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE TABLE invoices (
		id TEXT PRIMARY KEY,
		id_client TEXT,
		id_order TEXT NOT NULL,
		id_payment_method TEXT NOT NULL,
		amount_paid NUMERIC NOT NULL,
		returned NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'pagada',
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_on DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_invoices_order_live ON invoices (id_order) WHERE deleted = 0`,
	`CREATE TABLE information_company (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tax_id TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
}
