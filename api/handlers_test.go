package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-ledger/api"
	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/token"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	employer = "0xemployer"
	pool     = "payroll-pool"
	alice    = "0xalice"
)

type fixture struct {
	router http.Handler
	clock  *payroll.ManualClock
	token  *token.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tok := token.NewMemory()
	require.NoError(t, tok.Mint(employer, payroll.NewAmount(1_000_000)))
	require.NoError(t, tok.Approve(employer, pool, payroll.NewAmount(1_000_000)))

	clock := payroll.NewManualClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	journal := payroll.NewMemoryJournal()

	ledger, err := payroll.New(employer, pool, token.Bind(tok, pool),
		payroll.WithClock(clock),
		payroll.WithJournal(journal),
	)
	require.NoError(t, err)

	handler := api.NewHandler(ledger, journal)
	return &fixture{router: api.NewRouter(handler), clock: clock, token: tok}
}

func (f *fixture) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(api.CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (f *fixture) registerAlice(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/employees", employer,
		map[string]string{"address": alice, "monthly_rate": "3000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// REGISTRATION & QUERIES
// =============================================================================

func TestRegister_HappyPath(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/employees", employer,
		map[string]string{"address": alice, "monthly_rate": "3000"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, alice, body["address"])
	assert.Equal(t, true, body["active"])
	assert.Equal(t, "3000", body["monthly_rate"])
	assert.Equal(t, "0", body["withdrawable"])
	assert.Nil(t, body["last_advance_period"])
}

func TestRegister_ErrorMapping(t *testing.T) {
	f := newFixture(t)

	// Missing caller header.
	rec := f.do(t, http.MethodPost, "/api/employees", "",
		map[string]string{"address": alice, "monthly_rate": "3000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong caller role.
	rec = f.do(t, http.MethodPost, "/api/employees", alice,
		map[string]string{"address": alice, "monthly_rate": "3000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["code"])

	// Zero rate.
	rec = f.do(t, http.MethodPost, "/api/employees", employer,
		map[string]string{"address": alice, "monthly_rate": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate registration.
	f.registerAlice(t)
	rec = f.do(t, http.MethodPost, "/api/employees", employer,
		map[string]string{"address": alice, "monthly_rate": "3000"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_exists", decode(t, rec)["code"])
}

func TestGetWithdrawable_PreviewsAccrual(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	f.clock.Advance(15 * 24 * time.Hour)

	rec := f.do(t, http.MethodGet, "/api/employees/"+alice+"/withdrawable", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1500", body["withdrawable"])
	assert.Equal(t, true, body["registered"])

	// Unknown addresses are a zero preview, not an error.
	rec = f.do(t, http.MethodGet, "/api/employees/0xnobody/withdrawable", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "0", body["withdrawable"])
	assert.Equal(t, false, body["registered"])
}

func TestGetEmployee_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/employees/0xnobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// MONEY-MOVING FLOW
// =============================================================================

func TestAdvanceFlow(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	// Fund the pool so the payout can move.
	rec := f.do(t, http.MethodPost, "/api/fund", employer, map[string]string{"amount": "100000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f.clock.Advance(15 * 24 * time.Hour)

	// 1500 earned so far, so advances are capped at 750.
	rec = f.do(t, http.MethodPost, "/api/advance", alice, map[string]string{"amount": "700"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "700", body["withdrawn"])
	assert.Equal(t, float64(0), body["last_advance_period"])
	assert.True(t, f.token.BalanceOf(alice).Equal(payroll.NewAmount(700)))

	// Second advance in the same period.
	rec = f.do(t, http.MethodPost, "/api/advance", alice, map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "state_conflict", decode(t, rec)["code"])

	// Over the half cap in the next period.
	f.clock.Advance(15 * 24 * time.Hour)
	rec = f.do(t, http.MethodPost, "/api/advance", alice, map[string]string{"amount": "99999"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_entitlement", decode(t, rec)["code"])

	// Withdraw collects the rest.
	rec = f.do(t, http.MethodPost, "/api/withdraw", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.token.BalanceOf(alice).Equal(payroll.NewAmount(3000)))
}

func TestRefundAndRelease(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)
	rec := f.do(t, http.MethodPost, "/api/fund", employer, map[string]string{"amount": "100000"})
	require.Equal(t, http.StatusOK, rec.Code)

	f.clock.Advance(30 * 24 * time.Hour)

	rec = f.do(t, http.MethodPost, "/api/employees/"+alice+"/refund", employer,
		map[string]string{"amount": "500"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "500", decode(t, rec)["refunded"])

	rec = f.do(t, http.MethodPost, "/api/employees/"+alice+"/release", employer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2500", decode(t, rec)["withdrawn"])
	assert.True(t, f.token.BalanceOf(alice).Equal(payroll.NewAmount(2500)))
}

// =============================================================================
// PAUSE & EVENTS
// =============================================================================

func TestPauseGate_OverHTTP(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	rec := f.do(t, http.MethodPost, "/api/admin/pause", employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["paused"])

	// Fund-moving operations are frozen.
	rec = f.do(t, http.MethodPost, "/api/fund", employer, map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "paused", decode(t, rec)["code"])

	// Lifecycle toggles and queries stay open.
	rec = f.do(t, http.MethodPost, "/api/employees/"+alice+"/deactivate", employer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/unpause", employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["paused"])
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	rec := f.do(t, http.MethodGet, "/api/events?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.NotEmpty(t, events)
	assert.Equal(t, "registered", events[0]["kind"])
	assert.Equal(t, alice, events[0]["employee"])

	rec = f.do(t, http.MethodGet, "/api/events?limit=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
