package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session status values. CANCELLED is set by back-office tooling, never by
// this service; it still counts as "not open" everywhere we check.
const (
	SessionOpen      = "OPEN"
	SessionClosed    = "CLOSED"
	SessionCancelled = "CANCELLED"
)

// TillSession represents one cash-register shift: opened with a starting
// float, closed with a reconciliation. The register/warehouse binding is
// copied onto the row at open time so later catalog edits never rewrite
// history.
type TillSession struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Status string    `gorm:"type:varchar(20);not null;default:'OPEN';index"`

	OpenedByID uuid.UUID `gorm:"type:uuid;not null"`

	CashRegisterID   uuid.UUID `gorm:"type:uuid;not null"`
	CashRegisterCode string    `gorm:"type:varchar(40);not null"`
	WarehouseCode    string    `gorm:"type:varchar(40);not null"`
	DefaultCustomer  *string   `gorm:"type:varchar(120)"`

	OpeningAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OpeningNotes         *string
	OpeningDenominations []byte `gorm:"type:jsonb"`
	OpenedAt             time.Time

	// Closing fields stay nil until the single OPEN→CLOSED transition.
	ClosingAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClosingNotes  *string
	ClosedByID    *uuid.UUID `gorm:"type:uuid"`
	ClosedAt      *time.Time

	// TotalsSnapshot freezes the full closure summary at close time.
	// Post-close reads replay this value; they never recompute from the
	// invoice ledger.
	TotalsSnapshot []byte `gorm:"type:jsonb"`

	Breakdowns []PaymentBreakdown `gorm:"foreignKey:SessionID"`
}

// PaymentBreakdown is one per-method reconciliation row of a closed session.
// Uniquely keyed by (session_id, method) so a replayed close upserts instead
// of duplicating.
type PaymentBreakdown struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_breakdown_session_method"`
	Method    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_breakdown_session_method"`

	ExpectedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReportedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// DifferenceAmount = reported - expected; positive is overage.
	DifferenceAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TransactionCount int             `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
