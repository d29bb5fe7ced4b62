/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for testing and demos. Each scenario creates rules, employees,
  allowances and requests that demonstrate specific features.

AVAILABLE SCENARIOS:
  standard-year:        Default rules, three employees mid-year
  pending-approvals:    Transfers and a carry-over awaiting a decision
  year-end-carry-over:  Last year's balances carried over by the annual run
  unlimited-carry-over: Every unused day rolls over, nothing expires

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create rules via factory presets
 3. Create employees and grant allowances
 4. Record usage
 5. Optionally submit requests or run the annual carry-over

USAGE VIA API:
  POST /api/scenarios/load
  {"scenarioId": "pending-approvals"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to scenarioLoaders

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/presets.go: Rule set definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-year",
		Name:        "Standard Year",
		Description: "Default transfer and carry-over rules, three employees with some days taken",
		Category:    "quota",
	},
	{
		ID:          "pending-approvals",
		Name:        "Pending Approvals",
		Description: "Transfers to RTT and training plus a carry-over waiting for a manager",
		Category:    "workflow",
	},
	{
		ID:          "year-end-carry-over",
		Name:        "Year-End Carry-Over",
		Description: "Last year's unused days carried over by the annual run, expiring on April 1st",
		Category:    "carry-over",
	},
	{
		ID:          "unlimited-carry-over",
		Name:        "Unlimited Carry-Over",
		Description: "All unused annual and RTT days roll over without expiry",
		Category:    "carry-over",
	},
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

func (h *Handler) scenarioLoaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"standard-year":        h.loadStandardYearScenario,
		"pending-approvals":    h.loadPendingApprovalsScenario,
		"year-end-carry-over":  h.loadYearEndCarryOverScenario,
		"unlimited-carry-over": h.loadUnlimitedCarryOverScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.getCurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.setCurrentScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ApplyRuleSet validates and saves every rule of set through the
// management service, so QUOTA_CONFIG_UPDATED is published per rule.
func (h *Handler) ApplyRuleSet(ctx context.Context, set factory.RuleSetJSON) error {
	transfers, carryOvers, periods, err := set.Rules()
	if err != nil {
		return err
	}
	for _, r := range transfers {
		if _, err := h.Management.SaveTransferRule(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range carryOvers {
		if _, err := h.Management.SaveCarryOverRule(ctx, r); err != nil {
			return err
		}
	}
	for _, p := range periods {
		if _, err := h.Management.SaveSpecialPeriod(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardYearScenario(ctx context.Context) error {
	year := h.now().Year()
	if err := h.ApplyRuleSet(ctx, factory.DefaultRuleSet()); err != nil {
		return err
	}

	seeds := []employeeSeed{
		{
			emp:        sqlite.Employee{ID: "emp-001", Name: "Alice Martin", Email: "alice@example.com", Department: "Engineering"},
			allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25, quota.LeaveRecovery: 10, quota.LeaveTraining: 3},
			usage: []usageSeed{
				{quota.LeaveAnnual, time.Date(year, time.February, 10, 0, 0, 0, 0, time.UTC), 5, false},
				{quota.LeaveAnnual, time.Date(year, time.December, 22, 0, 0, 0, 0, time.UTC), 2, true},
			},
		},
		{
			emp:        sqlite.Employee{ID: "emp-002", Name: "Bruno Petit", Email: "bruno@example.com", Department: "Sales"},
			allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25, quota.LeaveRecovery: 8},
			usage: []usageSeed{
				{quota.LeaveAnnual, time.Date(year, time.April, 14, 0, 0, 0, 0, time.UTC), 10, false},
				{quota.LeaveRecovery, time.Date(year, time.May, 2, 0, 0, 0, 0, time.UTC), 1, false},
			},
		},
		{
			emp:        sqlite.Employee{ID: "emp-003", Name: "Chloé Durand", Email: "chloe@example.com", Department: "Engineering"},
			allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 27, quota.LeaveRecovery: 10},
		},
	}
	if err := h.seedEmployees(ctx, year, seeds); err != nil {
		return err
	}

	// RTT back to annual needs no approval: completes immediately
	_, err := h.Management.RequestTransfer(ctx, quota.TransferRequest{
		UserID:     "emp-002",
		SourceType: quota.LeaveRecovery,
		TargetType: quota.LeaveAnnual,
		Amount:     quota.Days(2),
		Year:       year,
		Comment:    "Pont de mai",
	})
	return err
}

func (h *Handler) loadPendingApprovalsScenario(ctx context.Context) error {
	year := h.now().Year()
	set := factory.DefaultRuleSet()
	for i := range set.CarryOverRules {
		set.CarryOverRules[i].RequiresApproval = true
	}
	if err := h.ApplyRuleSet(ctx, set); err != nil {
		return err
	}

	emp := sqlite.Employee{ID: "emp-001", Name: "Alice Martin", Email: "alice@example.com", Department: "Engineering"}
	if err := h.seedEmployees(ctx, year, []employeeSeed{{
		emp:        emp,
		allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25, quota.LeaveRecovery: 10},
	}}); err != nil {
		return err
	}
	// Last year's leftovers for the carry-over request
	if err := h.seedEmployees(ctx, year-1, []employeeSeed{{
		emp:        emp,
		allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25},
		usage: []usageSeed{
			{quota.LeaveAnnual, time.Date(year-1, time.August, 4, 0, 0, 0, 0, time.UTC), 15, false},
		},
	}}); err != nil {
		return err
	}

	requests := []quota.TransferRequest{
		{UserID: "emp-001", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: quota.Days(3), Year: year, Comment: "Projet de fin d'année"},
		{UserID: "emp-001", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveTraining, Amount: quota.Days(2), Year: year, Comment: "Certification"},
	}
	for _, req := range requests {
		if _, err := h.Management.RequestTransfer(ctx, req); err != nil {
			return err
		}
	}

	_, err := h.Management.RequestCarryOver(ctx, quota.CarryOverRequest{
		UserID:    "emp-001",
		LeaveType: quota.LeaveAnnual,
		FromYear:  year - 1,
		Comment:   "Report des congés non pris",
	})
	return err
}

func (h *Handler) loadYearEndCarryOverScenario(ctx context.Context) error {
	year := h.now().Year()
	if err := h.ApplyRuleSet(ctx, factory.DefaultRuleSet()); err != nil {
		return err
	}

	last := year - 1
	seeds := []employeeSeed{
		{
			emp:        sqlite.Employee{ID: "emp-001", Name: "Alice Martin", Email: "alice@example.com", Department: "Engineering"},
			allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25, quota.LeaveRecovery: 10},
			usage: []usageSeed{
				{quota.LeaveAnnual, time.Date(last, time.July, 21, 0, 0, 0, 0, time.UTC), 12, false},
				{quota.LeaveRecovery, time.Date(last, time.March, 3, 0, 0, 0, 0, time.UTC), 7, false},
			},
		},
		{
			emp:        sqlite.Employee{ID: "emp-002", Name: "Bruno Petit", Email: "bruno@example.com", Department: "Sales"},
			allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 25},
			usage: []usageSeed{
				{quota.LeaveAnnual, time.Date(last, time.August, 4, 0, 0, 0, 0, time.UTC), 25, false},
			},
		},
	}
	if err := h.seedEmployees(ctx, last, seeds); err != nil {
		return err
	}
	for i := range seeds {
		seeds[i].usage = nil
	}
	if err := h.seedEmployees(ctx, year, seeds); err != nil {
		return err
	}

	run, err := h.Store.ProcessAnnualCarryOver(ctx, last)
	if err != nil {
		return err
	}
	publishAnnualRun(h.Bus, h.now(), run)
	return nil
}

func (h *Handler) loadUnlimitedCarryOverScenario(ctx context.Context) error {
	year := h.now().Year()
	set := factory.UnlimitedCarryOverRuleSet()
	set.TransferRules = factory.DefaultRuleSet().TransferRules
	if err := h.ApplyRuleSet(ctx, set); err != nil {
		return err
	}

	return h.seedEmployees(ctx, year-1, []employeeSeed{{
		emp:        sqlite.Employee{ID: "emp-001", Name: "Alice Martin", Email: "alice@example.com", Department: "Engineering"},
		allowances: map[quota.LeaveType]float64{quota.LeaveAnnual: 30, quota.LeaveRecovery: 12},
		usage: []usageSeed{
			{quota.LeaveAnnual, time.Date(year-1, time.September, 15, 0, 0, 0, 0, time.UTC), 9, false},
		},
	}})
}

// =============================================================================
// SEED HELPERS
// =============================================================================

type employeeSeed struct {
	emp        sqlite.Employee
	allowances map[quota.LeaveType]float64
	usage      []usageSeed
}

type usageSeed struct {
	leaveType quota.LeaveType
	date      time.Time
	days      float64
	pending   bool
}

func (h *Handler) seedEmployees(ctx context.Context, year int, seeds []employeeSeed) error {
	for _, s := range seeds {
		if s.emp.HireDate.IsZero() {
			s.emp.HireDate = time.Date(year-3, time.September, 1, 0, 0, 0, 0, time.UTC)
		}
		if err := h.Store.SaveEmployee(ctx, s.emp); err != nil {
			return err
		}
		for t, days := range s.allowances {
			if err := h.Store.GrantAllowance(ctx, generic.EntityID(s.emp.ID), t, year, quota.Days(days)); err != nil {
				return err
			}
		}
		for _, u := range s.usage {
			if err := h.Store.RecordUsage(ctx, generic.EntityID(s.emp.ID), u.leaveType, u.date, quota.Days(u.days), u.pending); err != nil {
				return err
			}
		}
	}
	return nil
}
