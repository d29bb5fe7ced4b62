/*
handlers.go - HTTP API handlers for the leave quota backend

PURPOSE:
  Exposes the quota services and the SQLite store via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the services
  (rule evaluation, workflow, events) or to the store (raw reads).

ENDPOINTS (under /api/leaves):
  Balances:
    GET    /quotas/employee/{id}?year=      Leave balance for a year
    POST   /quotas/calculate                Availability of requested days
    POST   /quotas/adjust                   Manual correction
    GET    /quotas/summary?userId=&year=    Balances, pending requests, expiring days
    GET    /quotas/state?userId=&year=      Per-type state with transfers and carry-overs
    GET    /quotas/alerts?userId=           Carried days expiring within 30 days
    GET    /quotas/transactions             Ledger entries (userId, year, type)
    GET    /quotas/statistics               Aggregates (userId, department, year)
    GET    /quotas/dashboard                Year overview (year, departmentId)

  Rules:
    GET|POST       /quotas/transfer-rules, /quotas/carry-over-rules, /quotas/special-periods
    GET            /quotas/transfer-rules/active, /quotas/carry-over-rules/active
    PUT|DELETE     .../{id}

  Transfers:
    GET|POST /quotas/transfers              History / submit
    POST     /quotas/transfers/simulate     Evaluate without submitting
    GET      /quotas/transfers/allowed      Pair check
    POST     /quotas/transfers/{id}/approve|reject
    POST     /quotas/transfers/report       JSON report, or a document when format is set

  Carry-overs:
    GET|POST /quotas/carry-overs            History / submit
    POST     /quotas/carry-overs/simulate
    GET      /quotas/carry-overs/allowed
    POST     /quotas/carry-overs/{id}/approve|reject
    POST     /quotas/carry-overs/process-annual
    POST     /quotas/carry-overs/expire
    GET      /quotas/carry-overs/runs

  Management aliases:
    POST /quota-transfers/{simulate,request}, /quota-transfers/{id}/process
    POST /quota-carryovers/{simulate,request}, /quota-carryovers/{id}/process

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access, also the Backend of the services
  - Advanced, Legacy, Management: Quota services sharing one event bus
  - Bus: Receives QUOTA_* events

  The /quotas/.../simulate routes use the rule-driven path (ratio multiplies),
  the /quota-.../simulate aliases use the simulation path (ratio divides).

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee, rule or request not found
  - 409: Request already processed, duplicate
  - 422: Business rejection (insufficient balance, no rule, nothing to carry)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Status and code mapping
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/message"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
	"github.com/warp/leave-quota/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all HTTP handler dependencies.
type Handler struct {
	Store      *sqlite.Store
	Advanced   *service.Advanced
	Legacy     *service.Legacy
	Management *service.Management
	Bus        *events.Bus

	now     func() time.Time
	printer *message.Printer
	logger  *log.Logger

	mu              sync.Mutex
	currentScenario string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithBus sets the bus the services publish on.
func WithBus(bus *events.Bus) HandlerOption {
	return func(h *Handler) { h.Bus = bus }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithPrinter sets the printer used for messages.
func WithPrinter(p *message.Printer) HandlerOption {
	return func(h *Handler) { h.printer = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a handler and its services over store.
func NewHandler(store *sqlite.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		Store:   store,
		now:     time.Now,
		printer: i18n.DefaultPrinter(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.Bus == nil {
		h.Bus = events.New(events.WithClock(h.now), events.WithLogger(h.logger))
	}
	svcOpts := []service.Option{
		service.WithBus(h.Bus),
		service.WithClock(h.now),
		service.WithPrinter(h.printer),
		service.WithLogger(h.logger),
	}
	h.Advanced = service.NewAdvanced(store, svcOpts...)
	h.Legacy = service.NewLegacy(store, svcOpts...)
	h.Management = service.NewManagement(store, svcOpts...)
	return h
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates or updates an employee and grants its allowances.
// Allowances already granted for the year are left untouched.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateEmployeeRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	hireDate, err := factory.ParseDate(req.HireDate)
	if err != nil {
		writeServiceError(w, "Invalid hire date", err)
		return
	}

	if err := h.Store.SaveEmployee(ctx, sqlite.Employee{
		ID:         req.ID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		HireDate:   hireDate,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}

	year := req.Year
	if year == 0 {
		year = h.now().Year()
	}
	for code, days := range req.Allowances {
		t, err := quota.ParseLeaveType(code)
		if err != nil {
			writeServiceError(w, "Invalid leave type", err)
			return
		}
		err = h.Store.GrantAllowance(ctx, generic.EntityID(req.ID), t, year, generic.Days(days))
		if err != nil && !errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
			writeError(w, http.StatusInternalServerError, "Failed to grant allowance", err)
			return
		}
	}

	emp, err := h.Store.GetEmployee(ctx, req.ID)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// BALANCE ENDPOINTS
// =============================================================================

// GetEmployeeQuota returns the leave balance of an employee.
// GET /api/leaves/quotas/employee/{id}?year=
func (h *Handler) GetEmployeeQuota(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r, h.now().Year())
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return
	}
	b, err := h.Store.LeaveBalance(r.Context(), generic.EntityID(chi.URLParam(r, "id")), year)
	if err != nil {
		writeServiceError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, ToLeaveBalanceDTO(b))
}

// CalculateAvailability checks requested days against the quota.
// POST /api/leaves/quotas/calculate
func (h *Handler) CalculateAvailability(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	t, err := quota.ParseLeaveType(req.LeaveType)
	if err != nil {
		writeServiceError(w, "Invalid leave type", err)
		return
	}
	a, err := h.Management.CalculateAvailability(r.Context(), generic.EntityID(req.UserID), t, req.Year, generic.Days(req.RequestedDays))
	if err != nil {
		writeServiceError(w, "Failed to calculate availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		LeaveType:        string(a.LeaveType),
		Eligible:         a.Eligible,
		AvailableDays:    a.AvailableDays.Float64(),
		RequestedDays:    a.RequestedDays.Float64(),
		RemainingAfter:   a.RemainingAfter.Float64(),
		ExceededBy:       a.ExceededBy.Float64(),
		RequiresApproval: a.RequiresApproval,
		WarningLevel:     string(a.WarningLevel),
		Quota:            toQuotaForTypeDTO(a.Quota),
		Message:          a.Notice.Render(h.printer),
	})
}

// AdjustBalance applies a manual correction.
// POST /api/leaves/quotas/adjust
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	t, err := quota.ParseLeaveType(req.LeaveType)
	if err != nil {
		writeServiceError(w, "Invalid leave type", err)
		return
	}
	b, err := h.Management.AdjustBalance(r.Context(), service.Adjustment{
		UserID:    generic.EntityID(req.UserID),
		LeaveType: t,
		Year:      req.Year,
		Amount:    generic.Days(req.Amount),
		Reason:    req.Reason,
		AdminID:   req.AdminID,
	})
	if err != nil {
		writeServiceError(w, "Failed to adjust balance", err)
		return
	}
	writeJSON(w, http.StatusOK, ToLeaveBalanceDTO(b))
}

// GetQuotaSummary returns a user's year at a glance.
// GET /api/leaves/quotas/summary?userId=&year=
func (h *Handler) GetQuotaSummary(w http.ResponseWriter, r *http.Request) {
	userID, year, ok := h.userYear(w, r)
	if !ok {
		return
	}
	s, err := h.Management.QuotaSummary(r.Context(), userID, year)
	if err != nil {
		writeServiceError(w, "Failed to get summary", err)
		return
	}
	dto := QuotaSummaryDTO{
		UserID:            string(s.UserID),
		Year:              s.Year,
		Balances:          []QuotaForTypeDTO{},
		PendingTransfers:  ToTransferRecordDTOs(s.PendingTransfers),
		PendingCarryOvers: ToCarryOverRecordDTOs(s.PendingCarryOvers),
		Expiring:          h.toExpiringAlertDTOs(s.Expiring),
	}
	for _, q := range s.Balances {
		dto.Balances = append(dto.Balances, toQuotaForTypeDTO(q))
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetQuotaState returns the per-type quota state.
// GET /api/leaves/quotas/state?userId=&year=
func (h *Handler) GetQuotaState(w http.ResponseWriter, r *http.Request) {
	userID, year, ok := h.userYear(w, r)
	if !ok {
		return
	}
	states, err := h.Advanced.EnhancedQuotaState(r.Context(), userID, year)
	if err != nil {
		writeServiceError(w, "Failed to get quota state", err)
		return
	}
	writeJSON(w, http.StatusOK, toEnhancedQuotaStateDTOs(states))
}

// GetQuotaAlerts returns carried days about to expire and publishes one
// QUOTA_EXPIRING event per batch.
// GET /api/leaves/quotas/alerts?userId=
func (h *Handler) GetQuotaAlerts(w http.ResponseWriter, r *http.Request) {
	userID := generic.EntityID(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	alerts, err := h.Management.NotifyQuotaAlerts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "Failed to get alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toExpiringAlertDTOs(alerts))
}

// GetTransactions returns ledger entries, newest first.
// GET /api/leaves/quotas/transactions?userId=&year=&type=
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r, 0)
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return
	}
	txs, err := h.Management.TransactionHistory(r.Context(), service.TransactionQuery{
		UserID: generic.EntityID(r.URL.Query().Get("userId")),
		Year:   year,
		Type:   generic.TransactionType(r.URL.Query().Get("type")),
	})
	if err != nil {
		writeServiceError(w, "Failed to get transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetStatistics returns quota statistics for a user, a department or everyone.
// GET /api/leaves/quotas/statistics?userId=&department=&year=
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r, 0)
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return
	}
	stats, err := h.Advanced.Statistics(r.Context(), service.StatisticsQuery{
		UserID:     generic.EntityID(r.URL.Query().Get("userId")),
		Department: r.URL.Query().Get("department"),
		Year:       year,
	})
	if err != nil {
		writeServiceError(w, "Failed to get statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, ToStatisticsDTO(stats))
}

// GetDashboard returns the year overview: utilization, transfer totals,
// carried and expired days, and the users transferring the most.
// GET /api/leaves/quotas/dashboard?year=&departmentId=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r, 0)
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return
	}
	department := r.URL.Query().Get("departmentId")
	if department == "" {
		department = r.URL.Query().Get("department")
	}
	d, err := h.Advanced.Dashboard(r.Context(), year, department)
	if err != nil {
		writeServiceError(w, "Failed to get dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, ToDashboardDTO(d))
}

// =============================================================================
// RULE ENDPOINTS
// =============================================================================

// ListTransferRules returns every transfer rule in evaluation order.
func (h *Handler) ListTransferRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.TransferRules(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list transfer rules", err)
		return
	}
	writeJSON(w, http.StatusOK, transferRulesJSON(rules))
}

// ListActiveTransferRules returns the transfer rules applicable now.
func (h *Handler) ListActiveTransferRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Advanced.ActiveTransferRules(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list transfer rules", err)
		return
	}
	writeJSON(w, http.StatusOK, transferRulesJSON(rules))
}

// SaveTransferRule creates (POST) or replaces (PUT /{id}) a transfer rule.
func (h *Handler) SaveTransferRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.TransferRuleJSON
	if err := decode(r, &rj); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		rj.ID = id
	}
	rule, err := rj.ToRule()
	if err != nil {
		writeServiceError(w, "Invalid transfer rule", err)
		return
	}
	saved, err := h.Management.SaveTransferRule(r.Context(), rule)
	if err != nil {
		writeServiceError(w, "Failed to save transfer rule", err)
		return
	}
	writeJSON(w, savedStatus(r), factory.TransferRuleToJSON(saved))
}

// DeleteTransferRule removes a transfer rule.
func (h *Handler) DeleteTransferRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Management.DeleteTransferRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete transfer rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListCarryOverRules returns every carry-over rule in evaluation order.
func (h *Handler) ListCarryOverRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.CarryOverRules(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list carry-over rules", err)
		return
	}
	writeJSON(w, http.StatusOK, carryOverRulesJSON(rules))
}

// ListActiveCarryOverRules returns the active carry-over rules.
func (h *Handler) ListActiveCarryOverRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Advanced.ActiveCarryOverRules(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list carry-over rules", err)
		return
	}
	writeJSON(w, http.StatusOK, carryOverRulesJSON(rules))
}

// SaveCarryOverRule creates (POST) or replaces (PUT /{id}) a carry-over rule.
func (h *Handler) SaveCarryOverRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.CarryOverRuleJSON
	if err := decode(r, &rj); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		rj.ID = id
	}
	rule, err := rj.ToRule()
	if err != nil {
		writeServiceError(w, "Invalid carry-over rule", err)
		return
	}
	saved, err := h.Management.SaveCarryOverRule(r.Context(), rule)
	if err != nil {
		writeServiceError(w, "Failed to save carry-over rule", err)
		return
	}
	writeJSON(w, savedStatus(r), factory.CarryOverRuleToJSON(saved))
}

// DeleteCarryOverRule removes a carry-over rule.
func (h *Handler) DeleteCarryOverRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Management.DeleteCarryOverRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete carry-over rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListSpecialPeriods returns every special period, or only those active
// on ?date= when given.
func (h *Handler) ListSpecialPeriods(w http.ResponseWriter, r *http.Request) {
	var (
		periods []quota.SpecialPeriodRule
		err     error
	)
	if d := r.URL.Query().Get("date"); d != "" {
		date, perr := factory.ParseDate(d)
		if perr != nil {
			writeServiceError(w, "Invalid date", perr)
			return
		}
		periods, err = h.Legacy.ActiveSpecialPeriodsForDate(r.Context(), date)
	} else {
		periods, err = h.Legacy.SpecialPeriods(r.Context())
	}
	if err != nil {
		writeServiceError(w, "Failed to list special periods", err)
		return
	}
	out := make([]factory.SpecialPeriodJSON, 0, len(periods))
	for _, p := range periods {
		out = append(out, factory.SpecialPeriodToJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// SaveSpecialPeriod creates (POST) or replaces (PUT /{id}) a special period.
func (h *Handler) SaveSpecialPeriod(w http.ResponseWriter, r *http.Request) {
	var pj factory.SpecialPeriodJSON
	if err := decode(r, &pj); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		pj.ID = id
	}
	period, err := pj.ToRule()
	if err != nil {
		writeServiceError(w, "Invalid special period", err)
		return
	}
	saved, err := h.Management.SaveSpecialPeriod(r.Context(), period)
	if err != nil {
		writeServiceError(w, "Failed to save special period", err)
		return
	}
	writeJSON(w, savedStatus(r), factory.SpecialPeriodToJSON(saved))
}

// DeleteSpecialPeriod removes a special period.
func (h *Handler) DeleteSpecialPeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Management.DeleteSpecialPeriod(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete special period", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// TRANSFER ENDPOINTS
// =============================================================================

// ListTransfers returns transfer history, newest first. Without ?userId=
// every user's transfers are returned.
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Advanced.TransferHistory(r.Context(), generic.EntityID(r.URL.Query().Get("userId")))
	if err != nil {
		writeServiceError(w, "Failed to get transfer history", err)
		return
	}
	writeJSON(w, http.StatusOK, ToTransferRecordDTOs(rows))
}

// RequestTransfer submits a transfer. The store re-evaluates it atomically.
// POST /api/leaves/quotas/transfers, POST /api/leaves/quota-transfers/request
func (h *Handler) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransferRequest(w, r)
	if !ok {
		return
	}
	result, err := h.Management.RequestTransfer(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Transfer rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, NewTransferResultDTO(result, h.printer))
}

// SimulateTransfer evaluates a transfer on the rule-driven path.
// POST /api/leaves/quotas/transfers/simulate
func (h *Handler) SimulateTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransferRequest(w, r)
	if !ok {
		return
	}
	sim, err := h.Advanced.SimulateTransfer(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to simulate transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, ToTransferSimulationDTO(sim, sim.Message(h.printer)))
}

// SimulateQuotaTransfer evaluates a transfer on the simulation path.
// POST /api/leaves/quota-transfers/simulate
func (h *Handler) SimulateQuotaTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransferRequest(w, r)
	if !ok {
		return
	}
	sim, err := h.Legacy.SimulateQuotaTransfer(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to simulate transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, ToTransferSimulationDTO(sim, sim.Message(h.printer)))
}

// TransferAllowed reports whether a pair can be transferred now.
// GET /api/leaves/quotas/transfers/allowed?userId=&fromType=&toType=
func (h *Handler) TransferAllowed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, err := quota.ParseLeaveType(q.Get("fromType"))
	if err != nil {
		writeServiceError(w, "Invalid leave type", err)
		return
	}
	target, err := quota.ParseLeaveType(q.Get("toType"))
	if err != nil {
		writeServiceError(w, "Invalid leave type", err)
		return
	}
	allowed, reason, err := h.Advanced.TransferAllowed(r.Context(), generic.EntityID(q.Get("userId")), source, target)
	if err != nil {
		writeServiceError(w, "Failed to check transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, AllowedDTO{Allowed: allowed, Reason: reason})
}

// ApproveTransfer approves a pending transfer.
func (h *Handler) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	h.processTransfer(w, r, boolPtr(true))
}

// RejectTransfer rejects a pending transfer.
func (h *Handler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	h.processTransfer(w, r, boolPtr(false))
}

// ProcessTransfer decides a pending transfer from the body's approve flag.
// POST /api/leaves/quota-transfers/{id}/process
func (h *Handler) ProcessTransfer(w http.ResponseWriter, r *http.Request) {
	h.processTransfer(w, r, nil)
}

func (h *Handler) processTransfer(w http.ResponseWriter, r *http.Request, approve *bool) {
	d, ok := decodeDecision(w, r, approve)
	if !ok {
		return
	}
	rec, err := h.Management.ProcessTransfer(r.Context(), d)
	if err != nil {
		writeServiceError(w, "Failed to process transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, ToTransferRecordDTO(rec))
}

// TransferReport returns a transfer report as JSON, or as a rendered
// document when the body sets a format.
// POST /api/leaves/quotas/transfers/report
func (h *Handler) TransferReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := decodeOptional(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	opts, err := req.ToOptions()
	if err != nil {
		writeServiceError(w, "Invalid report options", err)
		return
	}

	if opts.Format == "" {
		report, err := h.Advanced.TransferReport(r.Context(), opts)
		if err != nil {
			writeServiceError(w, "Failed to build report", err)
			return
		}
		writeJSON(w, http.StatusOK, ToTransferReportDTO(report))
		return
	}

	export, err := h.Advanced.ExportTransferReport(r.Context(), opts)
	if err != nil {
		writeServiceError(w, "Failed to export report", err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transfer-report."+exportExtension(export.Format)))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}

// =============================================================================
// CARRY-OVER ENDPOINTS
// =============================================================================

// ListCarryOvers returns carry-over history, newest first.
func (h *Handler) ListCarryOvers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Advanced.CarryOverHistory(r.Context(), generic.EntityID(r.URL.Query().Get("userId")))
	if err != nil {
		writeServiceError(w, "Failed to get carry-over history", err)
		return
	}
	writeJSON(w, http.StatusOK, ToCarryOverRecordDTOs(rows))
}

// RequestCarryOver submits a carry-over. The store re-evaluates it atomically.
// POST /api/leaves/quotas/carry-overs, POST /api/leaves/quota-carryovers/request
func (h *Handler) RequestCarryOver(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCarryOverRequest(w, r)
	if !ok {
		return
	}
	result, err := h.Management.RequestCarryOver(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Carry-over rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, NewCarryOverResultDTO(result, h.printer))
}

// SimulateCarryOver evaluates a carry-over on the rule-driven path.
// POST /api/leaves/quotas/carry-overs/simulate
func (h *Handler) SimulateCarryOver(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCarryOverRequest(w, r)
	if !ok {
		return
	}
	calc, err := h.Advanced.SimulateCarryOver(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to simulate carry-over", err)
		return
	}
	writeJSON(w, http.StatusOK, ToCarryOverCalculationDTO(calc, calc.Message(h.printer)))
}

// SimulateCarryOverCalculation evaluates a carry-over on the simulation path.
// POST /api/leaves/quota-carryovers/simulate
func (h *Handler) SimulateCarryOverCalculation(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCarryOverRequest(w, r)
	if !ok {
		return
	}
	calc, err := h.Legacy.SimulateCarryOverCalculation(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to simulate carry-over", err)
		return
	}
	writeJSON(w, http.StatusOK, ToCarryOverCalculationDTO(calc, calc.Message(h.printer)))
}

// CarryOverAllowed reports whether a leave type can be carried from a year.
// GET /api/leaves/quotas/carry-overs/allowed?userId=&leaveType=&year=
func (h *Handler) CarryOverAllowed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := quota.ParseLeaveType(q.Get("leaveType"))
	if err != nil {
		writeServiceError(w, "Invalid leave type", err)
		return
	}
	year, err := queryYear(r, h.now().Year())
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return
	}
	allowed, reason, err := h.Advanced.CarryOverAllowed(r.Context(), generic.EntityID(q.Get("userId")), t, year)
	if err != nil {
		writeServiceError(w, "Failed to check carry-over", err)
		return
	}
	writeJSON(w, http.StatusOK, AllowedDTO{Allowed: allowed, Reason: reason})
}

// ApproveCarryOver approves a pending carry-over.
func (h *Handler) ApproveCarryOver(w http.ResponseWriter, r *http.Request) {
	h.processCarryOver(w, r, boolPtr(true))
}

// RejectCarryOver rejects a pending carry-over.
func (h *Handler) RejectCarryOver(w http.ResponseWriter, r *http.Request) {
	h.processCarryOver(w, r, boolPtr(false))
}

// ProcessCarryOver decides a pending carry-over from the body's approve flag.
// POST /api/leaves/quota-carryovers/{id}/process
func (h *Handler) ProcessCarryOver(w http.ResponseWriter, r *http.Request) {
	h.processCarryOver(w, r, nil)
}

func (h *Handler) processCarryOver(w http.ResponseWriter, r *http.Request, approve *bool) {
	d, ok := decodeDecision(w, r, approve)
	if !ok {
		return
	}
	rec, err := h.Management.ProcessCarryOver(r.Context(), d)
	if err != nil {
		writeServiceError(w, "Failed to process carry-over", err)
		return
	}
	writeJSON(w, http.StatusOK, ToCarryOverRecordDTO(rec))
}

// ProcessAnnualCarryOver runs the carry-over of every employee out of
// fromYear (default: last year).
// POST /api/leaves/quotas/carry-overs/process-annual
func (h *Handler) ProcessAnnualCarryOver(w http.ResponseWriter, r *http.Request) {
	var req ProcessAnnualRequest
	if err := decodeOptional(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if req.FromYear == 0 {
		req.FromYear = h.now().Year() - 1
	}
	run, err := h.Store.ProcessAnnualCarryOver(r.Context(), req.FromYear)
	if err != nil {
		writeServiceError(w, "Annual carry-over failed", err)
		return
	}
	publishAnnualRun(h.Bus, h.now(), run)
	writeJSON(w, http.StatusOK, ToCarryOverRunDTO(run))
}

// ExpireCarryOvers expires every landed carry-over past its expiry date.
// POST /api/leaves/quotas/carry-overs/expire
func (h *Handler) ExpireCarryOvers(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.ExpireCarryOvers(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to expire carry-overs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": n})
}

// ListCarryOverRuns returns annual runs, optionally filtered by ?status=.
// GET /api/leaves/quotas/carry-overs/runs
func (h *Handler) ListCarryOverRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.GetCarryOverRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get carry-over runs", err)
		return
	}
	dtos := make([]CarryOverRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, ToCarryOverRunDTO(run))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// AllowedDTO answers the /allowed checks.
type AllowedDTO struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		resp.Codes = codesFor(err)
	}
	writeJSON(w, status, resp)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
}

func decodeTransferRequest(w http.ResponseWriter, r *http.Request) (quota.TransferRequest, bool) {
	var dto TransferRequestDTO
	if err := decode(r, &dto); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return quota.TransferRequest{}, false
	}
	req, err := dto.ToRequest()
	if err != nil {
		writeServiceError(w, "Invalid transfer request", err)
		return quota.TransferRequest{}, false
	}
	return req, true
}

func decodeCarryOverRequest(w http.ResponseWriter, r *http.Request) (quota.CarryOverRequest, bool) {
	var dto CarryOverRequestDTO
	if err := decode(r, &dto); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return quota.CarryOverRequest{}, false
	}
	req, err := dto.ToRequest()
	if err != nil {
		writeServiceError(w, "Invalid carry-over request", err)
		return quota.CarryOverRequest{}, false
	}
	return req, true
}

// decodeDecision reads a decision for the {id} request. A nil approve
// takes the flag from the body, where it is then required.
func decodeDecision(w http.ResponseWriter, r *http.Request, approve *bool) (service.Decision, bool) {
	var req DecisionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return service.Decision{}, false
	}
	if approve == nil {
		approve = req.Approve
	}
	if approve == nil {
		writeError(w, http.StatusBadRequest, "approve is required", nil)
		return service.Decision{}, false
	}
	return service.Decision{
		RequestID:   chi.URLParam(r, "id"),
		Approve:     *approve,
		ProcessedBy: req.ProcessedBy,
		Comment:     req.Comment,
	}, true
}

func (h *Handler) userYear(w http.ResponseWriter, r *http.Request) (generic.EntityID, int, bool) {
	userID := generic.EntityID(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", nil)
		return "", 0, false
	}
	year, err := queryYear(r, h.now().Year())
	if err != nil {
		writeServiceError(w, "Invalid year", err)
		return "", 0, false
	}
	return userID, year, true
}

func queryYear(r *http.Request, fallback int) (int, error) {
	s := r.URL.Query().Get("year")
	if s == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 {
		return 0, fmt.Errorf("%w: invalid year %q", generic.ErrInvalidInput, s)
	}
	return year, nil
}

// savedStatus is 201 for a POST and 200 for a PUT.
func savedStatus(r *http.Request) int {
	if r.Method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) toExpiringAlertDTOs(alerts []quota.ExpiringAlert) []ExpiringAlertDTO {
	out := make([]ExpiringAlertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, ExpiringAlertDTO{
			CarryOver:       ToCarryOverRecordDTO(a.Record),
			DaysUntilExpiry: a.DaysUntilExpiry,
			Message:         a.Notice.Render(h.printer),
		})
	}
	return out
}

func transferRulesJSON(rules []quota.TransferRule) []factory.TransferRuleJSON {
	out := make([]factory.TransferRuleJSON, 0, len(rules))
	for _, r := range rules {
		out = append(out, factory.TransferRuleToJSON(r))
	}
	return out
}

func carryOverRulesJSON(rules []quota.CarryOverRule) []factory.CarryOverRuleJSON {
	out := make([]factory.CarryOverRuleJSON, 0, len(rules))
	for _, r := range rules {
		out = append(out, factory.CarryOverRuleToJSON(r))
	}
	return out
}

func exportExtension(f quota.ExportFormat) string {
	switch f {
	case quota.ExportCSV:
		return "csv"
	case quota.ExportExcel:
		return "xlsx"
	default:
		return "pdf"
	}
}

// publishAnnualRun announces a finished annual carry-over.
func publishAnnualRun(bus events.Publisher, now time.Time, run sqlite.CarryOverRun) {
	bus.Publish(events.Event{
		Type:      events.QuotaAnnualProcessed,
		Timestamp: now,
		Payload: map[string]any{
			"runId":       run.ID,
			"fromYear":    run.FromYear,
			"toYear":      run.ToYear,
			"status":      run.Status,
			"processed":   run.Processed,
			"skipped":     run.Skipped,
			"carriedOver": run.CarriedOver.String(),
		},
	})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) getCurrentScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func boolPtr(b bool) *bool {
	return &b
}
