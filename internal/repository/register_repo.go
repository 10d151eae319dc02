package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tillpos/internal/model"
)

// RegisterRepository is the assignment directory: which registers exist and
// who may operate them. Read-only from this service's point of view.
type RegisterRepository interface {
	FindByCode(ctx context.Context, code string) (*model.CashRegister, error)
	// FindAssignment returns (nil, nil) when the admin has no binding to
	// the register.
	FindAssignment(ctx context.Context, adminID, registerID uuid.UUID) (*model.RegisterAssignment, error)
	ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]model.RegisterAssignment, error)
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) FindByCode(ctx context.Context, code string) (*model.CashRegister, error) {
	var reg model.CashRegister
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = true", code).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registerRepo) FindAssignment(ctx context.Context, adminID, registerID uuid.UUID) (*model.RegisterAssignment, error) {
	var a model.RegisterAssignment
	err := r.db.WithContext(ctx).
		Where("admin_user_id = ? AND cash_register_id = ?", adminID, registerID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *registerRepo) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]model.RegisterAssignment, error) {
	var rows []model.RegisterAssignment
	err := r.db.WithContext(ctx).
		Preload("CashRegister").
		Where("admin_user_id = ?", adminID).
		Find(&rows).Error
	return rows, err
}
