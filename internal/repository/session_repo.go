package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tillpos/internal/model"
)

// SessionRepository persists till sessions and their payment breakdowns.
// Tx-suffixed methods run against the caller's transaction so the
// check-then-insert on open and the CLOSED transition + breakdown upserts
// on close commit atomically. The in-memory double used by unit tests
// implements the same interface (tx is nil there).
type SessionRepository interface {
	// DB exposes the handle for transaction scoping; nil for test doubles.
	DB() *gorm.DB

	CreateTx(tx *gorm.DB, s *model.TillSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TillSession, error)
	// FindByIDForUpdate locks the row so concurrent closes serialize on it.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.TillSession, error)
	// FindOpenByAdmin / FindOpenByRegister return (nil, nil) when no OPEN
	// session exists.
	FindOpenByAdmin(ctx context.Context, adminID uuid.UUID) (*model.TillSession, error)
	FindOpenByAdminTx(tx *gorm.DB, adminID uuid.UUID) (*model.TillSession, error)
	FindOpenByRegisterTx(tx *gorm.DB, registerID uuid.UUID) (*model.TillSession, error)
	UpdateTx(tx *gorm.DB, s *model.TillSession) error
	// UpsertBreakdownTx inserts or overwrites the row keyed by
	// (session_id, method) — replayed closes must never duplicate rows.
	UpsertBreakdownTx(tx *gorm.DB, b *model.PaymentBreakdown) error
	ListBreakdowns(ctx context.Context, sessionID uuid.UUID) ([]model.PaymentBreakdown, error)
	ListClosed(ctx context.Context, page, limit int) ([]model.TillSession, int64, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

// handle picks the transaction when one is in flight.
func (r *sessionRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *sessionRepo) CreateTx(tx *gorm.DB, s *model.TillSession) error {
	return r.handle(tx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.TillSession, error) {
	var s model.TillSession
	err := r.db.WithContext(ctx).Preload("Breakdowns").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.TillSession, error) {
	var s model.TillSession
	err := r.handle(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByAdmin(ctx context.Context, adminID uuid.UUID) (*model.TillSession, error) {
	return r.findOpen(r.db.WithContext(ctx), "opened_by_id = ?", adminID)
}

func (r *sessionRepo) FindOpenByAdminTx(tx *gorm.DB, adminID uuid.UUID) (*model.TillSession, error) {
	return r.findOpen(r.handle(tx), "opened_by_id = ?", adminID)
}

func (r *sessionRepo) FindOpenByRegisterTx(tx *gorm.DB, registerID uuid.UUID) (*model.TillSession, error) {
	return r.findOpen(r.handle(tx), "cash_register_id = ?", registerID)
}

func (r *sessionRepo) findOpen(db *gorm.DB, query string, arg any) (*model.TillSession, error) {
	var s model.TillSession
	err := db.Where(query, arg).Where("status = ?", model.SessionOpen).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) UpdateTx(tx *gorm.DB, s *model.TillSession) error {
	return r.handle(tx).Save(s).Error
}

func (r *sessionRepo) UpsertBreakdownTx(tx *gorm.DB, b *model.PaymentBreakdown) error {
	return r.handle(tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"expected_amount", "reported_amount", "difference_amount",
			"transaction_count", "updated_at",
		}),
	}).Create(b).Error
}

func (r *sessionRepo) ListBreakdowns(ctx context.Context, sessionID uuid.UUID) ([]model.PaymentBreakdown, error) {
	var rows []model.PaymentBreakdown
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("method ASC").
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) ListClosed(ctx context.Context, page, limit int) ([]model.TillSession, int64, error) {
	var sessions []model.TillSession
	var total int64

	q := r.db.WithContext(ctx).Model(&model.TillSession{}).Where("status = ?", model.SessionClosed)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("closed_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}
