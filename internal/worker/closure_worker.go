package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"tillpos/internal/dto"
	"tillpos/internal/infra"
)

// ClosureNoticeWorker emails the closure summary to the supervisor address.
// Delivery runs through the SMTP circuit breaker: when the relay is down
// jobs fast-fail and land in the DLQ instead of blocking the pool.
type ClosureNoticeWorker struct {
	mailer  *infra.Mailer
	breaker *infra.CircuitBreaker
	to      string
}

func NewClosureNoticeWorker(mailer *infra.Mailer, breaker *infra.CircuitBreaker, to string) *ClosureNoticeWorker {
	return &ClosureNoticeWorker{mailer: mailer, breaker: breaker, to: to}
}

func (w *ClosureNoticeWorker) Process(_ context.Context, raw json.RawMessage) error {
	var summary dto.ClosureSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		log.Error().Err(err).Msg("closure_notice: invalid payload")
		return nil // malformed jobs are dropped, not retried
	}
	if w.to == "" {
		log.Warn().Msg("closure_notice: no supervisor email configured — skipping")
		return nil
	}

	subject := fmt.Sprintf("Till closure %s — register %s", summary.SessionID, summary.CashRegisterCode)
	body := renderClosureBody(summary)

	if err := w.breaker.Execute(func() error {
		return w.mailer.Send(w.to, subject, body)
	}); err != nil {
		log.Error().Err(err).Str("session_id", summary.SessionID).Msg("closure_notice: send failed")
		return err
	}
	log.Info().Str("session_id", summary.SessionID).Msg("closure_notice: sent")
	return nil
}

// renderClosureBody produces the plain-text notification. Full document
// rendering belongs to the reporting service, not here.
func renderClosureBody(s dto.ClosureSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Register %s (warehouse %s)\n", s.CashRegisterCode, s.WarehouseCode)
	fmt.Fprintf(&b, "Opened %s by %s\n", s.OpenedAt, s.OpenedByAdminID)
	fmt.Fprintf(&b, "Closed %s by %s\n\n", s.ClosedAt, s.ClosedByAdminID)
	fmt.Fprintf(&b, "Expected total:   %s\n", s.ExpectedTotalAmount)
	fmt.Fprintf(&b, "Reported total:   %s\n", s.ReportedTotalAmount)
	fmt.Fprintf(&b, "Difference total: %s\n", s.DifferenceTotalAmount)
	fmt.Fprintf(&b, "Invoices: %d\n\n", s.TotalInvoices)
	for _, p := range s.Payments {
		fmt.Fprintf(&b, "  %-15s expected %10s  reported %10s  diff %10s  (%d tx)\n",
			p.Method, p.ExpectedAmount, p.ReportedAmount, p.DifferenceAmount, p.TransactionCount)
	}
	return b.String()
}
