package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tillpos/internal/dto"
	"tillpos/internal/model"
	"tillpos/internal/repository"
)

const (
	// methodCash is the only cash-like method: its reported total is what a
	// closing denomination count must add up to.
	methodCash = "CASH"

	timeFormat = "2006-01-02T15:04:05Z"

	closureCacheTTL = 10 * time.Minute
)

// ClosureNotifier is implemented by the worker dispatcher; a nil notifier
// disables notifications (unit tests).
type ClosureNotifier interface {
	EnqueueClosureNotice(ctx context.Context, summary dto.ClosureSummary) error
}

type SessionService interface {
	Open(ctx context.Context, callerID uuid.UUID, req dto.OpenSessionRequest) (*dto.OpenSessionResponse, error)
	Close(ctx context.Context, callerID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)
	Active(ctx context.Context, adminID uuid.UUID) (*dto.SessionResponse, error)
	History(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReport, error)
}

type sessionService struct {
	sessions      repository.SessionRepository
	registers     repository.RegisterRepository
	ledger        repository.LedgerRepository
	tokens        *ReportTokenService
	rdb           *redis.Client // nil in unit tests — cache becomes a no-op
	notifier      ClosureNotifier
	localCurrency string
}

func NewSessionService(
	sessions repository.SessionRepository,
	registers repository.RegisterRepository,
	ledger repository.LedgerRepository,
	tokens *ReportTokenService,
	rdb *redis.Client,
	notifier ClosureNotifier,
	localCurrency string,
) SessionService {
	return &sessionService{
		sessions:      sessions,
		registers:     registers,
		ledger:        ledger,
		tokens:        tokens,
		rdb:           rdb,
		notifier:      notifier,
		localCurrency: localCurrency,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, callerID uuid.UUID, req dto.OpenSessionRequest) (*dto.OpenSessionResponse, error) {
	// A supervisor may open on behalf of another operator.
	operatorID := callerID
	if req.OperatorAdminUserID != nil {
		id, err := uuid.Parse(*req.OperatorAdminUserID)
		if err != nil {
			return nil, fmt.Errorf("operator_admin_user_id: %w", err)
		}
		operatorID = id
	}

	register, err := s.registers.FindByCode(ctx, req.CashRegisterCode)
	if err != nil {
		return nil, ErrRegisterNotFound
	}

	assignment, err := s.registers.FindAssignment(ctx, operatorID, register.ID)
	if err != nil {
		return nil, err
	}
	if assignment == nil && !req.AllowUnassigned {
		return nil, ErrAssignmentNotFound
	}

	if req.OpeningAmount.IsPositive() {
		if err := ValidateDenominations(req.Denominations, req.OpeningAmount.Round(2), s.localCurrency); err != nil {
			return nil, err
		}
	}

	var denomsJSON []byte
	if len(req.Denominations) > 0 {
		denomsJSON, err = json.Marshal(req.Denominations)
		if err != nil {
			return nil, err
		}
	}

	session := &model.TillSession{
		Status:     model.SessionOpen,
		OpenedByID: operatorID,
		// Point-in-time copy of the catalog binding: later register edits
		// must not rewrite this session.
		CashRegisterID:       register.ID,
		CashRegisterCode:     register.Code,
		WarehouseCode:        register.WarehouseCode,
		DefaultCustomer:      register.DefaultCustomer,
		OpeningAmount:        req.OpeningAmount.Round(2),
		OpeningNotes:         req.OpeningNotes,
		OpeningDenominations: denomsJSON,
		OpenedAt:             time.Now().UTC(),
	}

	// Both single-open invariants and the insert live in one transaction;
	// the partial unique indexes back them up across instances.
	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		open, err := s.sessions.FindOpenByAdminTx(tx, operatorID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrSessionAlreadyOpen
		}
		open, err = s.sessions.FindOpenByRegisterTx(tx, register.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrSessionAlreadyOpen
		}
		return s.sessions.CreateTx(tx, session)
	})
	if txErr != nil {
		// Two concurrent opens can both pass the SELECTs above; the loser
		// then trips a partial unique index on INSERT. That race is the
		// same business conflict as the sequential case.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, txErr
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("register", register.Code).
		Str("admin_id", operatorID.String()).
		Msg("till session opened")

	return &dto.OpenSessionResponse{
		Session:   sessionToResponse(session),
		ReportURL: s.reportURL("opening", session.ID, operatorID),
	}, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, callerID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	session, err := s.resolveTarget(ctx, callerID, req.SessionID)
	if err != nil {
		return nil, err
	}

	// A replayed close is not an error: return the frozen summary.
	if session.Status != model.SessionOpen {
		return s.replayClosed(session, callerID)
	}

	if session.OpenedByID != callerID && !req.AllowDifferentUser {
		return nil, ErrForbidden
	}

	expectedAggs, totalInvoices, err := s.ledger.AggregateBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	expected := make([]PaymentLine, 0, len(expectedAggs))
	for _, a := range expectedAggs {
		expected = append(expected, PaymentLine{Method: a.Method, Amount: a.Amount, TransactionCount: a.TransactionCount})
	}
	reported := make([]PaymentLine, 0, len(req.Payments))
	cashReported := decimal.Zero
	for _, p := range req.Payments {
		reported = append(reported, PaymentLine{Method: p.Method, Amount: p.Amount, TransactionCount: p.TransactionCount})
		if NormalizeMethod(p.Method) == methodCash {
			cashReported = cashReported.Add(p.Amount)
		}
	}

	if cashReported.IsPositive() {
		if err := ValidateDenominations(req.Denominations, cashReported.Round(2), s.localCurrency); err != nil {
			return nil, err
		}
	}

	rows := Reconcile(expected, reported)
	expectedTotal, reportedTotal, differenceTotal := ReconcileTotals(rows)

	closedAt := time.Now().UTC()
	summary := dto.ClosureSummary{
		SessionID:             session.ID.String(),
		CashRegisterCode:      session.CashRegisterCode,
		WarehouseCode:         session.WarehouseCode,
		OpenedByAdminID:       session.OpenedByID.String(),
		ClosedByAdminID:       callerID.String(),
		OpeningAmount:         session.OpeningAmount,
		ClosingAmount:         req.ClosingAmount.Round(2),
		OpenedAt:              session.OpenedAt.Format(timeFormat),
		ClosedAt:              closedAt.Format(timeFormat),
		ClosingNotes:          req.ClosingNotes,
		ExpectedTotalAmount:   expectedTotal,
		ReportedTotalAmount:   reportedTotal,
		DifferenceTotalAmount: differenceTotal,
		TotalInvoices:         totalInvoices,
		Payments:              rows,
	}
	snapshot, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	// The transition, the frozen snapshot and every breakdown row commit
	// together or not at all. A concurrent duplicate close loses the row
	// lock race, observes CLOSED and falls into the replay path below.
	var raced *model.TillSession
	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		fresh, err := s.sessions.FindByIDForUpdate(tx, session.ID)
		if err != nil {
			return err
		}
		if fresh.Status != model.SessionOpen {
			raced = fresh
			return nil
		}

		closingAmount := req.ClosingAmount.Round(2)
		fresh.Status = model.SessionClosed
		fresh.ClosingAmount = &closingAmount
		fresh.ClosingNotes = req.ClosingNotes
		fresh.ClosedByID = &callerID
		fresh.ClosedAt = &closedAt
		fresh.TotalsSnapshot = snapshot
		if err := s.sessions.UpdateTx(tx, fresh); err != nil {
			return err
		}

		for _, row := range rows {
			if err := s.sessions.UpsertBreakdownTx(tx, &model.PaymentBreakdown{
				SessionID:        session.ID,
				Method:           row.Method,
				ExpectedAmount:   row.ExpectedAmount,
				ReportedAmount:   row.ReportedAmount,
				DifferenceAmount: row.DifferenceAmount,
				TransactionCount: row.TransactionCount,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	if raced != nil {
		return s.replayClosed(raced, callerID)
	}

	s.cacheSummary(ctx, session.ID, snapshot)

	if s.notifier != nil {
		if err := s.notifier.EnqueueClosureNotice(ctx, summary); err != nil {
			log.Error().Err(err).Str("session_id", summary.SessionID).Msg("failed to enqueue closure notice")
		}
	}

	log.Info().
		Str("session_id", summary.SessionID).
		Str("register", summary.CashRegisterCode).
		Str("difference_total", differenceTotal.String()).
		Msg("till session closed")

	return &dto.CloseSessionResponse{
		Summary:   summary,
		ReportURL: s.reportURL("closure", session.ID, callerID),
	}, nil
}

// resolveTarget picks the explicit session or falls back to the caller's
// current OPEN session.
func (s *sessionService) resolveTarget(ctx context.Context, callerID uuid.UUID, explicit *string) (*model.TillSession, error) {
	if explicit != nil && *explicit != "" {
		id, err := uuid.Parse(*explicit)
		if err != nil {
			return nil, ErrSessionNotFound
		}
		session, err := s.sessions.FindByID(ctx, id)
		if err != nil {
			return nil, ErrSessionNotFound
		}
		return session, nil
	}
	session, err := s.sessions.FindOpenByAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// replayClosed turns a duplicate close into an idempotent success carrying
// the frozen summary. CANCELLED sessions have nothing to replay.
func (s *sessionService) replayClosed(session *model.TillSession, callerID uuid.UUID) (*dto.CloseSessionResponse, error) {
	if session.Status != model.SessionClosed || len(session.TotalsSnapshot) == 0 {
		return nil, ErrSessionNotOpen
	}
	var summary dto.ClosureSummary
	if err := json.Unmarshal(session.TotalsSnapshot, &summary); err != nil {
		return nil, fmt.Errorf("corrupt totals snapshot for session %s: %w", session.ID, err)
	}
	return &dto.CloseSessionResponse{
		Summary:       summary,
		ReportURL:     s.reportURL("closure", session.ID, callerID),
		AlreadyClosed: true,
	}, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Active(ctx context.Context, adminID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.sessions.FindOpenByAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	resp := sessionToResponse(session)
	return &resp, nil
}

func (s *sessionService) History(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error) {
	sessions, total, err := s.sessions.ListClosed(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]dto.SessionResponse, len(sessions))
	for i := range sessions {
		resp[i] = sessionToResponse(&sessions[i])
	}
	return resp, total, nil
}

// Report serves the opening or closure document source. For CLOSED sessions
// the frozen snapshot is replayed (via the Redis read cache when available);
// the ledger is never re-queried, so the report stays stable forever.
func (s *sessionService) Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReport, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	report := &dto.SessionReport{
		ReportType: "opening",
		Session:    sessionToResponse(session),
	}
	if session.Status != model.SessionClosed {
		return report, nil
	}

	report.ReportType = "closure"
	snapshot := s.cachedSummary(ctx, sessionID)
	if snapshot == nil {
		snapshot = session.TotalsSnapshot
		s.cacheSummary(ctx, sessionID, snapshot)
	}
	var summary dto.ClosureSummary
	if err := json.Unmarshal(snapshot, &summary); err != nil {
		return nil, fmt.Errorf("corrupt totals snapshot for session %s: %w", sessionID, err)
	}
	report.Closure = &summary
	return report, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *sessionService) reportURL(reportType string, sessionID, requesterID uuid.UUID) string {
	token, err := s.tokens.Issue(reportType, sessionID, requesterID, ScopeSelf)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to issue report token")
		return fmt.Sprintf("/v1/till/%s/report?format=json", sessionID)
	}
	return fmt.Sprintf("/v1/till/%s/report?format=json&token=%s", sessionID, token)
}

func (s *sessionService) cacheKey(sessionID uuid.UUID) string {
	return "till:closure:" + sessionID.String()
}

func (s *sessionService) cacheSummary(ctx context.Context, sessionID uuid.UUID, snapshot []byte) {
	if s.rdb == nil || len(snapshot) == 0 {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(sessionID), snapshot, closureCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("closure summary cache write failed")
	}
}

func (s *sessionService) cachedSummary(ctx context.Context, sessionID uuid.UUID) []byte {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, s.cacheKey(sessionID)).Bytes()
	if err != nil {
		return nil
	}
	return data
}

func sessionToResponse(s *model.TillSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID:        s.ID.String(),
		Status:           s.Status,
		CashRegisterCode: s.CashRegisterCode,
		WarehouseCode:    s.WarehouseCode,
		DefaultCustomer:  s.DefaultCustomer,
		OpenedByAdminID:  s.OpenedByID.String(),
		OpeningAmount:    s.OpeningAmount,
		OpeningNotes:     s.OpeningNotes,
		OpenedAt:         s.OpenedAt.Format(timeFormat),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format(timeFormat)
		resp.ClosedAt = &t
	}
	return resp
}
