package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tillpos/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies idempotent SQL patches for what GORM cannot express — most
// importantly the partial unique indexes that make the single-open-session
// invariants hold across restarts and multiple server instances.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surface constraint violations as gorm.ErrDuplicatedKey so the
		// service layer can map an index-backed race to a domain conflict.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates/updates all tables and applies the schema patches.
// Also used by the integration test suite against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.AdminUser{},
		&model.CashRegister{},
		&model.RegisterAssignment{},
		&model.TillSession{},
		&model.PaymentBreakdown{},
		&model.Invoice{},
		&model.InvoicePayment{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
// The two partial indexes are the storage-level half of the "at most one
// OPEN session per admin / per register" invariant: the transactional
// check-then-insert handles the common path, the indexes make a race
// between two instances a constraint violation instead of corrupt state.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_till_sessions_open_admin
		     ON till_sessions (opened_by_id)
		     WHERE status = 'OPEN'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_till_sessions_open_register
		     ON till_sessions (cash_register_id)
		     WHERE status = 'OPEN'`,
		// Closed-session history is read newest-first.
		`CREATE INDEX IF NOT EXISTS idx_till_sessions_closed_at
		     ON till_sessions (closed_at DESC)
		     WHERE status = 'CLOSED'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
