package service

// Domain failures carry a stable code the frontend switches on and a kind
// the HTTP layer maps to a status. Infrastructure errors (DB down, etc.)
// are NOT DomainErrors; they bubble up raw and roll the transaction back.

type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindConflict
	KindForbidden
	KindNotFound
)

type DomainError struct {
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *DomainError) Error() string { return e.Message }

var (
	ErrSessionAlreadyOpen = &DomainError{
		Code: "SESSION_ALREADY_OPEN", Kind: KindConflict,
		Message: "an open till session already exists for this admin or register",
	}
	ErrSessionNotFound = &DomainError{
		Code: "SESSION_NOT_FOUND", Kind: KindNotFound,
		Message: "till session not found",
	}
	// ErrSessionNotOpen covers closing a CANCELLED session: there is no
	// frozen summary to replay, so it is a conflict, not an idempotent hit.
	ErrSessionNotOpen = &DomainError{
		Code: "SESSION_NOT_OPEN", Kind: KindConflict,
		Message: "till session is not open and has no closure to replay",
	}
	ErrAssignmentNotFound = &DomainError{
		Code: "ASSIGNMENT_NOT_FOUND", Kind: KindForbidden,
		Message: "admin is not assigned to this cash register",
	}
	ErrForbidden = &DomainError{
		Code: "FORBIDDEN", Kind: KindForbidden,
		Message: "only the opener may close this session",
	}
	ErrRegisterNotFound = &DomainError{
		Code: "REGISTER_NOT_FOUND", Kind: KindValidation,
		Message: "cash register code is unknown or inactive",
	}
	ErrDenominationsRequired = &DomainError{
		Code: "DENOMINATIONS_REQUIRED", Kind: KindValidation,
		Message: "a denomination count is required for a non-zero cash amount",
	}
	ErrCurrencyMismatch = &DomainError{
		Code: "CURRENCY_MISMATCH", Kind: KindValidation,
		Message: "denominations must all use the configured local currency",
	}
	ErrAmountMismatch = &DomainError{
		Code: "AMOUNT_MISMATCH", Kind: KindValidation,
		Message: "denomination count does not add up to the declared amount",
	}
)
