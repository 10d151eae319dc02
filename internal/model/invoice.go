package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice rows are written by the invoicing pipeline, which is outside this
// service. The session core only aggregates them at close time to build the
// "expected" side of the reconciliation.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TillSessionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Number        string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	// Status: "POSTED" | "VOIDED" — only POSTED invoices count as expected.
	Status    string          `gorm:"type:varchar(20);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time

	Payments []InvoicePayment `gorm:"foreignKey:InvoiceID"`
}

// InvoicePayment is one payment leg of an invoice (an invoice may be paid
// with several methods).
type InvoicePayment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    string          `gorm:"type:varchar(30);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}
