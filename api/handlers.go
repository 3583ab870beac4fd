/*
handlers.go - HTTP handlers for the payroll ledger

PURPOSE:
  Maps the HTTP surface onto ledger operations. Handlers do transport
  concerns only - decode, call, encode - every rule lives in the payroll
  package.

CALLER IDENTITY:
  The execution environment authenticates callers and supplies the principal
  in the X-Caller-Address header. The ledger decides what that principal may
  do; a missing header is a 401 before the ledger is ever consulted.

ERROR MAPPING:
  The payroll error taxonomy maps onto status codes in writeOpError.
  Structured detail stays in the body; the sentinel name becomes the code.

SEE ALSO:
  - server.go: routes and middleware
  - payroll/errors.go: the taxonomy being mapped
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payroll-ledger/payroll"
)

// CallerHeader carries the authenticated principal for every call.
const CallerHeader = "X-Caller-Address"

// Handler serves the payroll ledger over HTTP.
type Handler struct {
	ledger *payroll.Ledger
	events payroll.EventSource
}

// NewHandler creates the HTTP handler. events may be nil if no journal is
// attached; the events endpoint then reports an empty history.
func NewHandler(ledger *payroll.Ledger, events payroll.EventSource) *Handler {
	return &Handler{ledger: ledger, events: events}
}

// =============================================================================
// EMPLOYER LIFECYCLE
// =============================================================================

// Register handles POST /api/employees.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	rate, err := payroll.ParseAmount(req.MonthlyRate)
	if err != nil {
		writeOpError(w, err)
		return
	}
	if err := h.ledger.Register(r.Context(), caller, payroll.Address(req.Address), rate); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusCreated, payroll.Address(req.Address))
}

// UpdateRate handles PUT /api/employees/{address}/rate.
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	employee := payroll.Address(chi.URLParam(r, "address"))
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	rate, err := payroll.ParseAmount(req.MonthlyRate)
	if err != nil {
		writeOpError(w, err)
		return
	}
	if err := h.ledger.UpdateRate(r.Context(), caller, employee, rate); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// Deactivate handles POST /api/employees/{address}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	employee := payroll.Address(chi.URLParam(r, "address"))
	if err := h.ledger.Deactivate(r.Context(), caller, employee); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// Reactivate handles POST /api/employees/{address}/reactivate.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	employee := payroll.Address(chi.URLParam(r, "address"))
	if err := h.ledger.Reactivate(r.Context(), caller, employee); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// Fund handles POST /api/fund.
func (h *Handler) Fund(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Fund(r.Context(), caller, amount); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"funded": amount.String()})
}

// ReleaseSalary handles POST /api/employees/{address}/release.
func (h *Handler) ReleaseSalary(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	employee := payroll.Address(chi.URLParam(r, "address"))
	if err := h.ledger.ReleaseSalary(r.Context(), caller, employee); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// Refund handles POST /api/employees/{address}/refund.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	employee := payroll.Address(chi.URLParam(r, "address"))
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Refund(r.Context(), caller, employee, amount); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// =============================================================================
// EMPLOYEE SELF-SERVICE
// =============================================================================

// RequestAdvance handles POST /api/advance. The caller is the employee.
func (h *Handler) RequestAdvance(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.ledger.RequestAdvance(r.Context(), caller, amount); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, caller)
}

// Withdraw handles POST /api/withdraw. The caller is the employee.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Withdraw(r.Context(), caller); err != nil {
		writeOpError(w, err)
		return
	}
	h.writeEmployee(w, http.StatusOK, caller)
}

// =============================================================================
// PAUSE SWITCH
// =============================================================================

// Pause handles POST /api/admin/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Pause(r.Context(), caller); err != nil {
		writeOpError(w, err)
		return
	}
	h.Status(w, r)
}

// Unpause handles POST /api/admin/unpause.
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Unpause(r.Context(), caller); err != nil {
		writeOpError(w, err)
		return
	}
	h.Status(w, r)
}

// =============================================================================
// READ-ONLY QUERIES
// =============================================================================

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Employer: string(h.ledger.Employer()),
		Paused:   h.ledger.Paused(),
	})
}

// ListEmployees handles GET /api/employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, _ *http.Request) {
	records := h.ledger.Records()
	resp := make([]employeeResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toEmployeeResponse(rec, h.ledger.PreviewWithdrawable(rec.Employee)))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetEmployee handles GET /api/employees/{address}.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee := payroll.Address(chi.URLParam(r, "address"))
	if !h.ledger.IsRegistered(employee) {
		writeError(w, http.StatusNotFound, "not_found", "employee not registered")
		return
	}
	h.writeEmployee(w, http.StatusOK, employee)
}

// GetWithdrawable handles GET /api/employees/{address}/withdrawable.
// Never fails: unknown addresses have a withdrawable of zero.
func (h *Handler) GetWithdrawable(w http.ResponseWriter, r *http.Request) {
	employee := payroll.Address(chi.URLParam(r, "address"))
	writeJSON(w, http.StatusOK, withdrawableResponse{
		Address:      string(employee),
		Registered:   h.ledger.IsRegistered(employee),
		Withdrawable: h.ledger.PreviewWithdrawable(employee).String(),
	})
}

// ListEvents handles GET /api/events?limit=N, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_argument", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	resp := []eventResponse{}
	if h.events != nil {
		events, err := h.events.Events(r.Context(), limit)
		if err != nil {
			log.Printf("api: list events: %v", err)
			writeError(w, http.StatusInternalServerError, "internal", "failed to load events")
			return
		}
		for _, ev := range events {
			resp = append(resp, toEventResponse(ev))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (payroll.Address, bool) {
	caller := payroll.Address(r.Header.Get(CallerHeader))
	if caller.IsZero() {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+CallerHeader+" header")
		return payroll.ZeroAddress, false
	}
	return caller, true
}

func (h *Handler) writeEmployee(w http.ResponseWriter, status int, employee payroll.Address) {
	rec, ok := h.ledger.Lookup(employee)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "employee not registered")
		return
	}
	writeJSON(w, status, toEmployeeResponse(rec, h.ledger.PreviewWithdrawable(employee)))
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (payroll.Amount, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return payroll.Amount{}, false
	}
	amount, err := payroll.ParseAmount(req.Amount)
	if err != nil {
		writeOpError(w, err)
		return payroll.Amount{}, false
	}
	return amount, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeOpError maps the payroll error taxonomy onto HTTP status codes.
func writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payroll.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, payroll.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, payroll.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, payroll.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, payroll.ErrStateConflict):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, payroll.ErrInsufficientEntitlement):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_entitlement", err.Error())
	case errors.Is(err, payroll.ErrPaused):
		writeError(w, http.StatusLocked, "paused", err.Error())
	case errors.Is(err, payroll.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	case errors.Is(err, payroll.ErrReentrantCall):
		writeError(w, http.StatusServiceUnavailable, "busy", err.Error())
	default:
		log.Printf("api: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
