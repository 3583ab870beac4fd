/*
dto.go - Request and response shapes for the HTTP surface

PURPOSE:
  JSON contracts between the ledger and its callers. Amounts travel as
  decimal strings end to end - never as JSON numbers - so nothing on the
  wire can reintroduce floating point.
*/
package api

import (
	"time"

	"github.com/warp/payroll-ledger/payroll"
)

// =============================================================================
// REQUESTS
// =============================================================================

type registerRequest struct {
	Address     string `json:"address"`
	MonthlyRate string `json:"monthly_rate"`
}

type rateRequest struct {
	MonthlyRate string `json:"monthly_rate"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type employeeResponse struct {
	Address           string `json:"address"`
	Active            bool   `json:"active"`
	MonthlyRate       string `json:"monthly_rate"`
	EmploymentStart   string `json:"employment_start"`
	LastSync          string `json:"last_sync"`
	Accrued           string `json:"accrued"`
	Withdrawn         string `json:"withdrawn"`
	Refunded          string `json:"refunded"`
	LastAdvancePeriod *int64 `json:"last_advance_period,omitempty"`
	Withdrawable      string `json:"withdrawable"`
}

func toEmployeeResponse(rec payroll.Record, withdrawable payroll.Amount) employeeResponse {
	resp := employeeResponse{
		Address:         string(rec.Employee),
		Active:          rec.Active,
		MonthlyRate:     rec.MonthlyRate.String(),
		EmploymentStart: rec.EmploymentStart.UTC().Format(time.RFC3339),
		LastSync:        rec.LastSync.UTC().Format(time.RFC3339),
		Accrued:         rec.Accrued.String(),
		Withdrawn:       rec.Withdrawn.String(),
		Refunded:        rec.Refunded.String(),
		Withdrawable:    withdrawable.String(),
	}
	if rec.LastAdvancePeriod != payroll.NeverAdvanced {
		p := rec.LastAdvancePeriod
		resp.LastAdvancePeriod = &p
	}
	return resp
}

type withdrawableResponse struct {
	Address      string `json:"address"`
	Registered   bool   `json:"registered"`
	Withdrawable string `json:"withdrawable"`
}

type statusResponse struct {
	Employer string `json:"employer"`
	Paused   bool   `json:"paused"`
}

type eventResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Employee    string `json:"employee,omitempty"`
	Amount      string `json:"amount"`
	PeriodIndex *int64 `json:"period_index,omitempty"`
	At          string `json:"at"`
}

func toEventResponse(ev payroll.Event) eventResponse {
	resp := eventResponse{
		ID:       ev.ID,
		Kind:     string(ev.Kind),
		Employee: string(ev.Employee),
		Amount:   ev.Amount.String(),
		At:       ev.At.UTC().Format(time.RFC3339),
	}
	if ev.PeriodIndex != payroll.NeverAdvanced {
		p := ev.PeriodIndex
		resp.PeriodIndex = &p
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
