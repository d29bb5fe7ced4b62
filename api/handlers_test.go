/*
handlers_test.go - HTTP tests for the quota API

Tests for:
- Employee creation with allowances
- Transfer workflow: request, approve, conflicts, error codes
- Rule configuration endpoints
- Reports: JSON and CSV export
- Simulation endpoints on both ratio paths
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/store/sqlite"
)

// =============================================================================
// FIXTURES
// =============================================================================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// eventLog records every event published on the handler's bus.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(t events.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testEnv struct {
	srv    *httptest.Server
	h      *Handler
	clock  *testClock
	events *eventLog
}

// newTestEnv starts a server over an empty in-memory store at 2025-06-15.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)}
	store, err := sqlite.New(":memory:", sqlite.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, WithClock(clock.Now), WithLogger(log.New(io.Discard, "", 0)))
	rec := &eventLog{}
	h.Bus.SubscribeAll(rec.record)

	srv := httptest.NewServer(NewRouter(h, nil))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, h: h, clock: clock, events: rec}
}

// newSeededEnv adds the default rules and emp-1 holding 25 annual days
// (8 used) and 5 recovery days for 2025.
func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.h.ApplyRuleSet(ctx, factory.DefaultRuleSet()))
	require.NoError(t, env.h.seedEmployees(ctx, 2025, []employeeSeed{{
		emp:        sqlite.Employee{ID: "emp-1", Name: "Alice Martin", Email: "alice@example.com", Department: "Engineering"},
		allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25, quota.LeaveRecovery: 5},
		usage: []usageSeed{
			{quota.LeaveAnnual, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), 8, false},
		},
	}}))
	return env
}

func (e *testEnv) call(t *testing.T, method, path string, body any) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header
}

func (e *testEnv) callJSON(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	status, data, _ := e.call(t, method, path, body)
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out), string(data))
	}
	return status
}

func (e *testEnv) balance(t *testing.T, userID string, year int) LeaveBalanceDTO {
	t.Helper()
	var dto LeaveBalanceDTO
	status := e.callJSON(t, http.MethodGet, "/api/leaves/quotas/employee/"+userID+"?year="+strconv.Itoa(year), nil, &dto)
	require.Equal(t, http.StatusOK, status)
	return dto
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	status := env.callJSON(t, http.MethodGet, "/api/health", nil, &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateEmployee_GrantsAllowances(t *testing.T) {
	// GIVEN: An empty database
	env := newTestEnv(t)

	// WHEN: Creating an employee with allowances for 2025
	var emp EmployeeDTO
	status := env.callJSON(t, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID:         "emp-9",
		Name:       "Zoé Bernard",
		Email:      "zoe@example.com",
		Department: "Ops",
		HireDate:   "2024-03-01",
		Year:       2025,
		Allowances: map[string]float64{"ANNUAL": 25, "RECOVERY": 10},
	}, &emp)

	// THEN: The employee is created and the quota is granted
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "emp-9", emp.ID)
	assert.Equal(t, "2024-03-01", emp.HireDate)

	b := env.balance(t, "emp-9", 2025)
	assert.Equal(t, 25.0, b.DetailsByType["ANNUAL"].Allowance)
	assert.Equal(t, 10.0, b.DetailsByType["RECOVERY"].Remaining)
	assert.Equal(t, 25.0, b.InitialAllowance)
	assert.Equal(t, 10.0, b.AdditionalAllowance)
}

func TestCreateEmployee_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body CreateEmployeeRequest
	}{
		{"missing name", CreateEmployeeRequest{ID: "emp-1"}},
		{"missing id", CreateEmployeeRequest{Name: "Alice"}},
		{"bad hire date", CreateEmployeeRequest{ID: "emp-1", Name: "Alice", HireDate: "01/02/2024"}},
		{"unknown leave type", CreateEmployeeRequest{ID: "emp-1", Name: "Alice", Allowances: map[string]float64{"HOLIDAY": 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := env.call(t, http.MethodPost, "/api/employees", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestGetEmployee_Unknown(t *testing.T) {
	env := newTestEnv(t)

	var body ErrorResponse
	status := env.callJSON(t, http.MethodGet, "/api/employees/ghost", nil, &body)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body.Codes, "ENTITY_NOT_FOUND")
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransfer_RequestApproveAndConflict(t *testing.T) {
	// GIVEN: emp-1 with 17 annual days left and a rule needing approval
	env := newSeededEnv(t)

	// WHEN: Requesting 3 annual days into RTT
	var result TransferResultDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers", TransferRequestDTO{
		UserID: "emp-1", FromType: "ANNUAL", ToType: "RECOVERY", Amount: 3, Year: 2025,
	}, &result)

	// THEN: The transfer waits for a manager, nothing moved yet
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(quota.StatusPending), result.Status)
	assert.True(t, result.Simulation.RequiresApproval)
	assert.Equal(t, 3.0, result.Simulation.TargetAmount)
	require.NotEmpty(t, result.TransferID)
	assert.Equal(t, 17.0, env.balance(t, "emp-1", 2025).DetailsByType["ANNUAL"].Remaining)

	// WHEN: A manager approves it
	var rec TransferRecordDTO
	status = env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers/"+result.TransferID+"/approve",
		DecisionRequest{ProcessedBy: "mgr-1"}, &rec)

	// THEN: Both buckets move
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(quota.StatusApproved), rec.Status)
	assert.Equal(t, "mgr-1", rec.ProcessedBy)
	b := env.balance(t, "emp-1", 2025)
	assert.Equal(t, 14.0, b.DetailsByType["ANNUAL"].Remaining)
	assert.Equal(t, 8.0, b.DetailsByType["RECOVERY"].Remaining)

	// WHEN: Deciding again
	var errBody ErrorResponse
	status = env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers/"+result.TransferID+"/reject",
		DecisionRequest{ProcessedBy: "mgr-2"}, &errBody)

	// THEN: Conflict
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, errBody.Codes, "ALREADY_PROCESSED")
	assert.Equal(t, 2, env.events.count(events.QuotaTransferred))
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	env := newSeededEnv(t)

	var body ErrorResponse
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers", TransferRequestDTO{
		UserID: "emp-1", FromType: "ANNUAL", ToType: "RECOVERY", Amount: 20, Year: 2025,
	}, &body)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Codes, "INSUFFICIENT_BALANCE")
	assert.Contains(t, body.Codes, "TRANSFER_REJECTED")
	assert.Equal(t, 1, env.events.count(events.ErrorOccurred))
}

func TestTransfer_UnknownRequest(t *testing.T) {
	env := newSeededEnv(t)

	status, _, _ := env.call(t, http.MethodPost, "/api/leaves/quotas/transfers/missing/approve", DecisionRequest{})

	assert.Equal(t, http.StatusNotFound, status)
}

func TestProcessAlias_RequiresApproveFlag(t *testing.T) {
	env := newSeededEnv(t)

	var result TransferResultDTO
	require.Equal(t, http.StatusCreated, env.callJSON(t, http.MethodPost, "/api/leaves/quota-transfers/request",
		TransferRequestDTO{UserID: "emp-1", FromType: "ANNUAL", ToType: "RECOVERY", Amount: 1, Year: 2025}, &result))

	status, _, _ := env.call(t, http.MethodPost, "/api/leaves/quota-transfers/"+result.TransferID+"/process", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	var rec TransferRecordDTO
	status = env.callJSON(t, http.MethodPost, "/api/leaves/quota-transfers/"+result.TransferID+"/process",
		map[string]any{"approve": false, "processedBy": "mgr-1"}, &rec)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(quota.StatusRejected), rec.Status)
}

func TestSimulate_RatioPaths(t *testing.T) {
	// GIVEN: The training rule converts at 0.5
	env := newSeededEnv(t)
	req := TransferRequestDTO{UserID: "emp-1", FromType: "ANNUAL", ToType: "TRAINING", Amount: 1, Year: 2025}

	// WHEN: Simulating on the rule-driven path and on the simulation path
	var advanced, legacy TransferSimulationDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers/simulate", req, &advanced))
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodPost, "/api/leaves/quota-transfers/simulate", req, &legacy))

	// THEN: One multiplies by the rate, the other divides
	assert.True(t, advanced.IsValid)
	assert.Equal(t, 0.5, advanced.TargetAmount)
	assert.True(t, legacy.IsValid)
	assert.Equal(t, 2.0, legacy.TargetAmount)
	require.NotNil(t, advanced.AppliedRule)
	assert.Equal(t, "annual-to-training", advanced.AppliedRule.ID)

	// AND: Simulations publish nothing
	assert.Zero(t, env.events.count(events.QuotaTransferred))
}

func TestSimulate_NoRule(t *testing.T) {
	env := newSeededEnv(t)

	var sim TransferSimulationDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers/simulate",
		TransferRequestDTO{UserID: "emp-1", FromType: "RECOVERY", ToType: "TRAINING", Amount: 1, Year: 2025}, &sim)

	require.Equal(t, http.StatusOK, status)
	assert.False(t, sim.IsValid)
	assert.Contains(t, sim.Codes, "NO_APPLICABLE_RULE")
	assert.NotEmpty(t, sim.Message)
}

func TestTransferAllowed(t *testing.T) {
	env := newSeededEnv(t)

	var ok, no AllowedDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet,
		"/api/leaves/quotas/transfers/allowed?userId=emp-1&fromType=ANNUAL&toType=RECOVERY", nil, &ok))
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet,
		"/api/leaves/quotas/transfers/allowed?userId=emp-1&fromType=SICK&toType=ANNUAL", nil, &no))

	assert.True(t, ok.Allowed)
	assert.False(t, no.Allowed)
	assert.NotEmpty(t, no.Reason)
}

// =============================================================================
// BALANCES
// =============================================================================

func TestCalculateAvailability(t *testing.T) {
	env := newSeededEnv(t)

	var a AvailabilityDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/calculate", CalculateRequest{
		UserID: "emp-1", LeaveType: "ANNUAL", Year: 2025, RequestedDays: 20,
	}, &a)

	require.Equal(t, http.StatusOK, status)
	assert.False(t, a.Eligible)
	assert.Equal(t, 17.0, a.AvailableDays)
	assert.Equal(t, 3.0, a.ExceededBy)
	assert.NotEmpty(t, a.Message)
}

func TestAdjustBalance(t *testing.T) {
	env := newSeededEnv(t)

	var b LeaveBalanceDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/adjust", AdjustRequest{
		UserID: "emp-1", LeaveType: "ANNUAL", Year: 2025, Amount: 2, Reason: "seniority", AdminID: "hr-1",
	}, &b)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 27.0, b.DetailsByType["ANNUAL"].Allowance)
	assert.Equal(t, 1, env.events.count(events.QuotaUpdated))

	var txs []TransactionDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet,
		"/api/leaves/quotas/transactions?userId=emp-1&type=ADJUSTMENT", nil, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, 2.0, txs[0].Delta)
	assert.Equal(t, "hr-1", txs[0].CreatedBy)
}

func TestQuotaSummaryRequiresUser(t *testing.T) {
	env := newSeededEnv(t)

	status, _, _ := env.call(t, http.MethodGet, "/api/leaves/quotas/summary", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var s QuotaSummaryDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, "/api/leaves/quotas/summary?userId=emp-1", nil, &s))
	assert.Equal(t, 2025, s.Year)
	assert.NotEmpty(t, s.Balances)
}

// =============================================================================
// RULES
// =============================================================================

func TestTransferRules_CreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/leaves/quotas/transfer-rules"

	// WHEN: Creating a rule without ID
	var created factory.TransferRuleJSON
	status := env.callJSON(t, http.MethodPost, base, factory.TransferRuleJSON{
		FromType: "RECOVERY", ToType: "TRAINING", ConversionRate: 1, IsActive: true,
	}, &created)

	// THEN: The store assigns one
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "STANDARD", created.RuleType)

	// WHEN: Replacing it
	created.Description = "RTT vers formation"
	var updated factory.TransferRuleJSON
	status = env.callJSON(t, http.MethodPut, base+"/"+created.ID, created, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "RTT vers formation", updated.Description)

	var rules []factory.TransferRuleJSON
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, base, nil, &rules))
	require.Len(t, rules, 1)

	// WHEN: Deleting twice
	status, _, _ = env.call(t, http.MethodDelete, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, status)

	var body ErrorResponse
	status = env.callJSON(t, http.MethodDelete, base+"/"+created.ID, nil, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body.Codes, "RULE_NOT_FOUND")

	assert.Equal(t, 3, env.events.count(events.QuotaConfigUpdated))
}

func TestTransferRules_Invalid(t *testing.T) {
	env := newTestEnv(t)

	var body ErrorResponse
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfer-rules", factory.TransferRuleJSON{
		FromType: "ANNUAL", ToType: "ANNUAL", IsActive: true,
	}, &body)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Codes, "INVALID_RULE")
	assert.Zero(t, env.events.count(events.QuotaConfigUpdated))
}

func TestSpecialPeriods_ActiveOnDate(t *testing.T) {
	env := newSeededEnv(t)

	var summer, january, all []factory.SpecialPeriodJSON
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, "/api/leaves/quotas/special-periods?date=2025-07-14", nil, &summer))
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, "/api/leaves/quotas/special-periods?date=2026-01-03", nil, &january))
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, "/api/leaves/quotas/special-periods", nil, &all))

	require.Len(t, summer, 1)
	assert.Equal(t, "SUMMER", summer[0].PeriodType)
	require.Len(t, january, 1)
	assert.Equal(t, "HOLIDAYS", january[0].PeriodType)
	assert.Len(t, all, 2)

	status, _, _ := env.call(t, http.MethodGet, "/api/leaves/quotas/special-periods?date=14/07/2025", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// CARRY-OVERS
// =============================================================================

func TestCarryOver_RequestAndHistory(t *testing.T) {
	// GIVEN: emp-1 ends 2025 with 17 annual days, carried at 50%
	env := newSeededEnv(t)
	env.clock.Set(time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC))

	// WHEN: Requesting the carry-over
	var result CarryOverResultDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/carry-overs", CarryOverRequestDTO{
		UserID: "emp-1", LeaveType: "ANNUAL", FromYear: 2025,
	}, &result)

	// THEN: 8 days land in 2026, expiring three months in
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(quota.StatusCompleted), result.Status)
	assert.Equal(t, 17.0, result.Calculation.OriginalRemaining)
	assert.Equal(t, 8.0, result.Calculation.CarryOverAmount)
	assert.Equal(t, "2026-04-01", result.Calculation.ExpiryDate)
	assert.Equal(t, 8.0, env.balance(t, "emp-1", 2026).DetailsByType["ANNUAL"].Remaining)

	var history []CarryOverRecordDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet, "/api/leaves/quotas/carry-overs?userId=emp-1", nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, result.CarryOverID, history[0].ID)

	// WHEN: Requesting it again
	var body ErrorResponse
	status = env.callJSON(t, http.MethodPost, "/api/leaves/quotas/carry-overs", CarryOverRequestDTO{
		UserID: "emp-1", LeaveType: "ANNUAL", FromYear: 2025,
	}, &body)

	// THEN: One carry-over per type and year
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Codes, "ALREADY_PROCESSED")
}

func TestCarryOver_SimulationPathsRound(t *testing.T) {
	// GIVEN: 17 remaining under a 50% rule
	env := newSeededEnv(t)
	req := CarryOverRequestDTO{UserID: "emp-1", LeaveType: "ANNUAL", FromYear: 2025}

	var advanced, legacy CarryOverCalculationDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodPost, "/api/leaves/quotas/carry-overs/simulate", req, &advanced))
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodPost, "/api/leaves/quota-carryovers/simulate", req, &legacy))

	// THEN: Floor on one path, half-day rounding on the other
	assert.Equal(t, 8.0, advanced.CarryOverAmount)
	assert.Equal(t, 8.5, legacy.CarryOverAmount)
}

func TestProcessAnnualCarryOver_Once(t *testing.T) {
	env := newSeededEnv(t)
	env.clock.Set(time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC))

	var run CarryOverRunDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/carry-overs/process-annual", nil, &run)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2025, run.FromYear)
	assert.Equal(t, 2026, run.ToYear)
	assert.Equal(t, sqlite.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 10.0, run.CarriedOver)
	assert.Equal(t, 1, env.events.count(events.QuotaAnnualProcessed))

	var body ErrorResponse
	status = env.callJSON(t, http.MethodPost, "/api/leaves/quotas/carry-overs/process-annual",
		ProcessAnnualRequest{FromYear: 2025}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Codes, "ALREADY_PROCESSED")

	var runs []CarryOverRunDTO
	require.Equal(t, http.StatusOK, env.callJSON(t, http.MethodGet,
		"/api/leaves/quotas/carry-overs/runs?status="+sqlite.RunCompleted, nil, &runs))
	assert.Len(t, runs, 1)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestTransferReport_JSONAndCSV(t *testing.T) {
	// GIVEN: One completed RTT to annual transfer
	env := newSeededEnv(t)
	require.Equal(t, http.StatusCreated, env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers",
		TransferRequestDTO{UserID: "emp-1", FromType: "RECOVERY", ToType: "ANNUAL", Amount: 2, Year: 2025}, nil))

	// WHEN: Asking for the JSON report grouped by user
	var report TransferReportDTO
	status := env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers/report", ReportRequest{GroupBy: "user"}, &report)

	// THEN: The row carries the employee's name and department
	require.Equal(t, http.StatusOK, status)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Alice Martin", report.Rows[0].UserName)
	assert.Equal(t, "Engineering", report.Rows[0].Department)
	assert.Equal(t, 1, report.Summary.TotalTransfers)

	// WHEN: Exporting as CSV
	status, data, header := env.call(t, http.MethodPost, "/api/leaves/quotas/transfers/report", ReportRequest{Format: "csv"})

	// THEN: The document is an attachment
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "text/csv", header.Get("Content-Type"))
	assert.Contains(t, header.Get("Content-Disposition"), "transfer-report.csv")
	assert.True(t, strings.HasPrefix(string(data), "id,user_id,user_name"))
	assert.Contains(t, string(data), "emp-1")

	// AND: Formats not rendered here are refused
	status, _, _ = env.call(t, http.MethodPost, "/api/leaves/quotas/transfers/report", ReportRequest{Format: "pdf"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _, _ = env.call(t, http.MethodPost, "/api/leaves/quotas/transfers/report", ReportRequest{Format: "docx"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDashboard(t *testing.T) {
	// GIVEN: One completed RTT to annual transfer in Engineering
	env := newSeededEnv(t)
	require.Equal(t, http.StatusCreated, env.callJSON(t, http.MethodPost, "/api/leaves/quotas/transfers",
		TransferRequestDTO{UserID: "emp-1", FromType: "RECOVERY", ToType: "ANNUAL", Amount: 2, Year: 2025}, nil))

	// WHEN: Asking for the department's 2025 dashboard
	var d DashboardDTO
	status := env.callJSON(t, http.MethodGet, "/api/leaves/quotas/dashboard?year=2025&departmentId=Engineering", nil, &d)

	// THEN: Usage, transfer totals and the top user are joined
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2025, d.Year)
	assert.Equal(t, 8.0, d.Utilization.TotalUsed)
	assert.Equal(t, 1, d.Transfers.TotalTransfers)
	require.Len(t, d.TopUsers, 1)
	assert.Equal(t, "emp-1", d.TopUsers[0].Key)
	assert.Equal(t, 2.0, d.TopUsers[0].Days)

	// AND: Another department sees none of it
	status = env.callJSON(t, http.MethodGet, "/api/leaves/quotas/dashboard?year=2025&departmentId=Sales", nil, &d)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, d.Transfers.TotalTransfers)
	assert.Empty(t, d.TopUsers)

	status, _, _ = env.call(t, http.MethodGet, "/api/leaves/quotas/dashboard?year=later", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad input", quota.ErrInvalidRule, http.StatusBadRequest},
		{"carry-over closed", quota.ErrCarryOverClosed, http.StatusBadRequest},
		{"rejection with a malformed amount", fmt.Errorf("%w: %w", quota.ErrTransferRejected, generic.ErrInvalidInput), http.StatusBadRequest},
		{"unknown request", quota.ErrRequestNotFound, http.StatusNotFound},
		{"decided twice", quota.ErrAlreadyProcessed, http.StatusConflict},
		{"short balance", fmt.Errorf("%w: %w", quota.ErrTransferRejected, generic.ErrInsufficientBalance), http.StatusUnprocessableEntity},
		{"store busy", generic.ErrConcurrentModification, http.StatusServiceUnavailable},
		{"anything else", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
