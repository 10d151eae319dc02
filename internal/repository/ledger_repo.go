package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tillpos/internal/model"
)

// MethodAggregate is the invoice ledger's per-method expected total for one
// session: how much the system believes was collected via each method.
type MethodAggregate struct {
	Method           string
	Amount           decimal.Decimal
	TransactionCount int
}

// LedgerRepository reads the invoice ledger, which is written by the
// invoicing pipeline outside this service. Only POSTED invoices count.
type LedgerRepository interface {
	// AggregateBySession returns the per-method expected totals and the
	// number of posted invoices for a session.
	AggregateBySession(ctx context.Context, sessionID uuid.UUID) ([]MethodAggregate, int64, error)
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) AggregateBySession(ctx context.Context, sessionID uuid.UUID) ([]MethodAggregate, int64, error) {
	type row struct {
		Method string
		Total  decimal.Decimal
		Count  int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.InvoicePayment{}).
		Select("invoice_payments.method AS method, SUM(invoice_payments.amount) AS total, COUNT(*) AS count").
		Joins("JOIN invoices ON invoices.id = invoice_payments.invoice_id").
		Where("invoices.till_session_id = ? AND invoices.status = ?", sessionID, "POSTED").
		Group("invoice_payments.method").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	var invoices int64
	err = r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("till_session_id = ? AND status = ?", sessionID, "POSTED").
		Count(&invoices).Error
	if err != nil {
		return nil, 0, err
	}

	aggs := make([]MethodAggregate, 0, len(rows))
	for _, r := range rows {
		aggs = append(aggs, MethodAggregate{
			Method:           r.Method,
			Amount:           r.Total,
			TransactionCount: r.Count,
		})
	}
	return aggs, invoices, nil
}
