//go:build integration

package e2e

// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - login → open till → close with reconciliation → report via capability token
//   - duplicate open rejected per admin and per register
//   - duplicate close replays the frozen summary idempotently
//   - report link works without a login session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"tillpos/internal/config"
	"tillpos/internal/infra"
	"tillpos/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server       *httptest.Server
	db           *gorm.DB
	cashierToken string
	adminToken   string
}

func seedUser(t *testing.T, db *gorm.DB, username, role, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
		INSERT INTO admin_users (username, full_name, email, password_hash, role, active)
		VALUES (?, ?, ?, ?, ?, true)
		ON CONFLICT (username) DO NOTHING`,
		username, username, username, string(hash), role).Error)
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("tillpos_test"),
		tcPostgres.WithUsername("tillpos"),
		tcPostgres.WithPassword("tillpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                  8000,
		Env:                   "test",
		JWTSecret:             "test-secret-key",
		JWTExpirationHours:    8,
		JWTRefreshHours:       24,
		ReportTokenSecret:     "test-report-secret",
		ReportTokenTTLMinutes: 60,
		LocalCurrency:         "EUR",
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		WorkerPoolSize:        1,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	seedUser(t, db, "cashier@e2e.test", "cashier", "cashier-pass-1")
	seedUser(t, db, "admin@e2e.test", "admin", "admin-pass-1")

	require.NoError(t, db.Exec(`
		INSERT INTO cash_registers (code, name, warehouse_code, active)
		VALUES ('REG-01', 'Front desk', 'MAIN', true), ('REG-02', 'Back desk', 'MAIN', true)
		ON CONFLICT (code) DO NOTHING`).Error)
	require.NoError(t, db.Exec(`
		INSERT INTO register_assignments (admin_user_id, cash_register_id, is_default)
		SELECT u.id, r.id, false FROM admin_users u, cash_registers r
		ON CONFLICT (admin_user_id, cash_register_id) DO NOTHING`).Error)

	mailerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	srv := httptest.NewServer(router.New(cfg, db, rdb, mailerCB))
	t.Cleanup(srv.Close)

	return &testEnv{
		server:       srv,
		db:           db,
		cashierToken: login(t, srv, "cashier@e2e.test", "cashier-pass-1"),
		adminToken:   login(t, srv, "admin@e2e.test", "admin-pass-1"),
	}
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": username, "password": password}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

// postInvoice writes a POSTED invoice with payment legs straight into the
// ledger, standing in for the invoicing pipeline.
func postInvoice(t *testing.T, db *gorm.DB, sessionID, number string, payments map[string]float64) {
	t.Helper()
	total := 0.0
	for _, amt := range payments {
		total += amt
	}
	require.NoError(t, db.Exec(`
		INSERT INTO invoices (till_session_id, number, status, total)
		VALUES (?, ?, 'POSTED', ?)`, sessionID, number, total).Error)
	for method, amt := range payments {
		require.NoError(t, db.Exec(`
			INSERT INTO invoice_payments (invoice_id, method, amount)
			SELECT id, ?, ? FROM invoices WHERE number = ?`, method, amt, number).Error)
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_OpenCloseReconcile(t *testing.T) {
	env := setupTestEnv(t)

	// 1. Open with a counted float of 100
	openResp := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-01",
		"opening_amount":     "100",
		"opening_denominations": []map[string]any{
			{"value": "50", "quantity": 2},
		},
	}), env.cashierToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var opened struct {
		Session struct {
			SessionID string `json:"session_id"`
			Status    string `json:"status"`
		} `json:"session"`
		ReportURL string `json:"report_url"`
	}
	decodeJSON(t, openResp, &opened)
	assert.Equal(t, "OPEN", opened.Session.Status)
	assert.NotEmpty(t, opened.ReportURL)

	// 2. Active session resolves
	activeResp := do(t, env.server, "GET", "/v1/till/active", nil, env.cashierToken)
	require.Equal(t, http.StatusOK, activeResp.StatusCode)

	// 3. Ledger: 80 CASH + 50 CARD across two invoices
	postInvoice(t, env.db, opened.Session.SessionID, "INV-0001", map[string]float64{"CASH": 80})
	postInvoice(t, env.db, opened.Session.SessionID, "INV-0002", map[string]float64{"CARD": 50})

	// 4. Close declaring 75 CASH (5 short) + 50 CARD
	closeResp := do(t, env.server, "POST", "/v1/till/close", jsonBody(t, map[string]any{
		"closing_amount": "175",
		"payments": []map[string]any{
			{"method": "cash", "amount": "75", "transaction_count": 1},
			{"method": "CARD", "amount": "50", "transaction_count": 1},
		},
		"closing_denominations": []map[string]any{
			{"value": "25", "quantity": 3},
		},
	}), env.cashierToken)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	var closed struct {
		Summary struct {
			SessionID             string `json:"session_id"`
			DifferenceTotalAmount string `json:"difference_total_amount"`
			TotalInvoices         int64  `json:"total_invoices"`
			Payments              []struct {
				Method           string `json:"method"`
				ExpectedAmount   string `json:"expected_amount"`
				ReportedAmount   string `json:"reported_amount"`
				DifferenceAmount string `json:"difference_amount"`
			} `json:"payments"`
		} `json:"summary"`
		ReportURL     string `json:"report_url"`
		AlreadyClosed bool   `json:"already_closed"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.False(t, closed.AlreadyClosed)
	assert.Equal(t, "-5", closed.Summary.DifferenceTotalAmount)
	assert.Equal(t, int64(2), closed.Summary.TotalInvoices)
	require.Len(t, closed.Summary.Payments, 2)
	assert.Equal(t, "CARD", closed.Summary.Payments[0].Method)
	assert.Equal(t, "CASH", closed.Summary.Payments[1].Method)
	assert.Equal(t, "-5", closed.Summary.Payments[1].DifferenceAmount)

	// 5. Report via the capability link, with no Authorization header
	reportResp := do(t, env.server, "GET", closed.ReportURL, nil, "")
	require.Equal(t, http.StatusOK, reportResp.StatusCode)
	var report struct {
		ReportType string `json:"report_type"`
		Closure    *struct {
			DifferenceTotalAmount string `json:"difference_total_amount"`
		} `json:"closure"`
	}
	decodeJSON(t, reportResp, &report)
	assert.Equal(t, "closure", report.ReportType)
	require.NotNil(t, report.Closure)
	assert.Equal(t, "-5", report.Closure.DifferenceTotalAmount)
}

func TestE2E_DuplicateOpenRejected(t *testing.T) {
	env := setupTestEnv(t)

	first := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-01",
		"opening_amount":     "0",
	}), env.cashierToken)
	require.Equal(t, http.StatusCreated, first.StatusCode)

	// Same admin, another register
	dupAdmin := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-02",
		"opening_amount":     "0",
	}), env.cashierToken)
	assert.Equal(t, http.StatusConflict, dupAdmin.StatusCode)

	// Another admin, same register
	dupRegister := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-01",
		"opening_amount":     "0",
	}), env.adminToken)
	assert.Equal(t, http.StatusConflict, dupRegister.StatusCode)
}

func TestE2E_IdempotentClose(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-01",
		"opening_amount":     "0",
	}), env.cashierToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var opened struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
	}
	decodeJSON(t, openResp, &opened)

	closeBody := map[string]any{
		"session_id":     opened.Session.SessionID,
		"closing_amount": "0",
		"payments":       []map[string]any{},
	}
	first := do(t, env.server, "POST", "/v1/till/close", jsonBody(t, closeBody), env.cashierToken)
	require.Equal(t, http.StatusOK, first.StatusCode)
	var firstClose struct {
		Summary       json.RawMessage `json:"summary"`
		AlreadyClosed bool            `json:"already_closed"`
	}
	decodeJSON(t, first, &firstClose)
	assert.False(t, firstClose.AlreadyClosed)

	second := do(t, env.server, "POST", "/v1/till/close", jsonBody(t, closeBody), env.cashierToken)
	require.Equal(t, http.StatusOK, second.StatusCode)
	var secondClose struct {
		Summary       json.RawMessage `json:"summary"`
		AlreadyClosed bool            `json:"already_closed"`
	}
	decodeJSON(t, second, &secondClose)
	assert.True(t, secondClose.AlreadyClosed)
	assert.JSONEq(t, string(firstClose.Summary), string(secondClose.Summary))

	// Exactly one breakdown set persisted
	var count int64
	require.NoError(t, env.db.Raw(
		`SELECT COUNT(*) FROM payment_breakdowns WHERE session_id = ?`,
		opened.Session.SessionID).Scan(&count).Error)
	assert.Zero(t, count) // empty reconciliation writes no rows
}

func TestE2E_ReportAccessControl(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/till/open", jsonBody(t, map[string]any{
		"cash_register_code": "REG-01",
		"opening_amount":     "0",
	}), env.cashierToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var opened struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
		ReportURL string `json:"report_url"`
	}
	decodeJSON(t, openResp, &opened)

	// No token, no login → 401
	bare := fmt.Sprintf("/v1/till/%s/report?format=json", opened.Session.SessionID)
	resp := do(t, env.server, "GET", bare, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Capability link works unauthenticated
	resp = do(t, env.server, "GET", opened.ReportURL, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A tampered token falls back to login auth and is rejected
	u, err := url.Parse(opened.ReportURL)
	require.NoError(t, err)
	q := u.Query()
	q.Set("token", q.Get("token")+"x")
	resp = do(t, env.server, "GET", u.Path+"?"+q.Encode(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Back-office roles may read with their login session alone
	resp = do(t, env.server, "GET", bare, nil, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Unsupported format is rejected outright
	pdf := fmt.Sprintf("/v1/till/%s/report?format=pdf", opened.Session.SessionID)
	resp = do(t, env.server, "GET", pdf, nil, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
