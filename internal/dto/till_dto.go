package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DenominationEntry is one counted bill/coin line. Currency may be left
// empty, in which case the configured local currency is assumed.
type DenominationEntry struct {
	Currency string          `json:"currency"  validate:"omitempty,len=3"`
	Value    decimal.Decimal `json:"value"     validate:"required,gt=0"`
	Quantity int             `json:"quantity"  validate:"min=0"`
}

// PaymentEntry is one cashier-reported payment line at close. The same
// method may appear several times; entries are merged by normalized method.
type PaymentEntry struct {
	Method           string          `json:"method"            validate:"required,min=1"`
	Amount           decimal.Decimal `json:"amount"            validate:"min=0"`
	TransactionCount int             `json:"transaction_count" validate:"min=0"`
}

type OpenSessionRequest struct {
	CashRegisterCode string              `json:"cash_register_code" validate:"required,min=1"`
	OpeningAmount    decimal.Decimal     `json:"opening_amount"     validate:"min=0"`
	OpeningNotes     *string             `json:"opening_notes"`
	Denominations    []DenominationEntry `json:"opening_denominations" validate:"omitempty,dive"`
	// OperatorAdminUserID lets a supervisor open on behalf of a cashier.
	OperatorAdminUserID *string `json:"operator_admin_user_id" validate:"omitempty,uuid"`
	// AllowUnassigned skips the register-assignment check.
	AllowUnassigned bool `json:"allow_unassigned"`
}

type CloseSessionRequest struct {
	// SessionID is optional — when empty, the caller's current OPEN session
	// is resolved.
	SessionID     *string             `json:"session_id" validate:"omitempty,uuid"`
	ClosingAmount decimal.Decimal     `json:"closing_amount" validate:"min=0"`
	// Payments may be empty: a session with no activity still closes.
	Payments      []PaymentEntry      `json:"payments"       validate:"omitempty,dive"`
	ClosingNotes  *string             `json:"closing_notes"`
	Denominations []DenominationEntry `json:"closing_denominations" validate:"omitempty,dive"`
	// AllowDifferentUser permits closing a session opened by someone else.
	AllowDifferentUser bool `json:"allow_different_user"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// PaymentBreakdownRow is one per-method reconciliation line.
type PaymentBreakdownRow struct {
	Method           string          `json:"method"`
	ExpectedAmount   decimal.Decimal `json:"expected_amount"`
	ReportedAmount   decimal.Decimal `json:"reported_amount"`
	DifferenceAmount decimal.Decimal `json:"difference_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// ClosureSummary is the frozen aggregate written to totals_snapshot at close.
// All post-close reads replay this value verbatim.
type ClosureSummary struct {
	SessionID        string          `json:"session_id"`
	CashRegisterCode string          `json:"cash_register_code"`
	WarehouseCode    string          `json:"warehouse_code"`
	OpenedByAdminID  string          `json:"opened_by_admin_id"`
	ClosedByAdminID  string          `json:"closed_by_admin_id"`
	OpeningAmount    decimal.Decimal `json:"opening_amount"`
	ClosingAmount    decimal.Decimal `json:"closing_amount"`
	OpenedAt         string          `json:"opened_at"`
	ClosedAt         string          `json:"closed_at"`
	ClosingNotes     *string         `json:"closing_notes,omitempty"`

	ExpectedTotalAmount   decimal.Decimal       `json:"expected_total_amount"`
	ReportedTotalAmount   decimal.Decimal       `json:"reported_total_amount"`
	DifferenceTotalAmount decimal.Decimal       `json:"difference_total_amount"`
	TotalInvoices         int64                 `json:"total_invoices"`
	Payments              []PaymentBreakdownRow `json:"payments"`
}

type SessionResponse struct {
	SessionID        string          `json:"session_id"`
	Status           string          `json:"status"`
	CashRegisterCode string          `json:"cash_register_code"`
	WarehouseCode    string          `json:"warehouse_code"`
	DefaultCustomer  *string         `json:"default_customer,omitempty"`
	OpenedByAdminID  string          `json:"opened_by_admin_id"`
	OpeningAmount    decimal.Decimal `json:"opening_amount"`
	OpeningNotes     *string         `json:"opening_notes,omitempty"`
	OpenedAt         string          `json:"opened_at"`
	ClosedAt         *string         `json:"closed_at,omitempty"`
}

type OpenSessionResponse struct {
	Session   SessionResponse `json:"session"`
	ReportURL string          `json:"report_url"`
}

type CloseSessionResponse struct {
	Summary       ClosureSummary `json:"summary"`
	ReportURL     string         `json:"report_url"`
	AlreadyClosed bool           `json:"already_closed,omitempty"`
}

// SessionReport is what the report endpoint serves. For CLOSED sessions
// Closure is the frozen snapshot; for OPEN sessions it is nil and only the
// opening document fields are populated (the count stays blind until close).
type SessionReport struct {
	ReportType string          `json:"report_type"` // opening | closure
	Session    SessionResponse `json:"session"`
	Closure    *ClosureSummary `json:"closure,omitempty"`
}

type RegisterResponse struct {
	ID              string  `json:"id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	WarehouseCode   string  `json:"warehouse_code"`
	DefaultCustomer *string `json:"default_customer,omitempty"`
	IsDefault       bool    `json:"is_default"`
}
