package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
)

// Advanced is the primary quota service: rule-driven transfers that
// multiply by the ratio, floored carry-overs, history and reports.
type Advanced struct {
	core
}

// NewAdvanced creates an Advanced service over backend.
func NewAdvanced(backend Backend, opts ...Option) *Advanced {
	return &Advanced{core: newCore(backend, opts)}
}

// =============================================================================
// RULES
// =============================================================================

// ActiveTransferRules returns transfer rules applicable now.
func (s *Advanced) ActiveTransferRules(ctx context.Context) ([]quota.TransferRule, error) {
	rules, err := s.backend.TransferRules(ctx)
	if err != nil {
		return nil, s.fail("ActiveTransferRules", i18n.ErrFetchTransferRules, err)
	}
	return quota.ActiveTransferRules(rules, s.now()), nil
}

// ActiveCarryOverRules returns active carry-over rules.
func (s *Advanced) ActiveCarryOverRules(ctx context.Context) ([]quota.CarryOverRule, error) {
	rules, err := s.backend.CarryOverRules(ctx)
	if err != nil {
		return nil, s.fail("ActiveCarryOverRules", i18n.ErrFetchCarryOverRules, err)
	}
	return quota.ActiveCarryOverRules(rules), nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

// SimulateTransfer evaluates a transfer without submitting it. An invalid
// transfer is a result, not an error.
func (s *Advanced) SimulateTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferSimulation, error) {
	return simulateTransfer(ctx, &s.core, "SimulateTransfer", req, quota.AdvancedTransfer)
}

func simulateTransfer(ctx context.Context, c *core, op string, req quota.TransferRequest, policy quota.TransferPolicy) (quota.TransferSimulation, error) {
	now := c.now()
	var (
		balance quota.LeaveBalance
		rules   []quota.TransferRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := c.backend.LeaveBalance(gctx, req.UserID, req.BalanceYear(now))
		if err != nil {
			return c.fail(op, i18n.ErrFetchBalance, err)
		}
		balance = b
		return nil
	})
	if !req.IgnoreRules {
		g.Go(func() error {
			r, err := c.backend.TransferRules(gctx)
			if err != nil {
				return c.fail(op, i18n.ErrFetchTransferRules, err)
			}
			rules = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return quota.TransferSimulation{}, err
	}
	return quota.EvaluateTransfer(balance, rules, req, policy, now), nil
}

// ExecuteTransfer simulates the transfer and submits it when valid. An
// invalid simulation returns a *quota.RejectionError wrapping
// quota.ErrTransferRejected and the simulation's reason.
func (s *Advanced) ExecuteTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferResult, error) {
	sim, err := s.SimulateTransfer(ctx, req)
	if err != nil {
		return quota.TransferResult{}, err
	}
	if !sim.Valid {
		return quota.TransferResult{Simulation: sim, Message: sim.Message(s.printer)}, &quota.RejectionError{
			Cause:   fmt.Errorf("%w: %w", quota.ErrTransferRejected, sim.Reason),
			Message: sim.Message(s.printer),
		}
	}

	result, err := s.backend.SubmitTransfer(ctx, req)
	if err != nil {
		return quota.TransferResult{Simulation: sim}, s.fail("ExecuteTransfer", i18n.ErrTransfer, err)
	}
	result.Simulation = sim
	if result.Message == "" {
		result.Message = sim.Message(s.printer)
	}
	s.publish(events.QuotaTransferred, string(req.UserID), transferPayload(req, result))
	return result, nil
}

func transferPayload(req quota.TransferRequest, r quota.TransferResult) map[string]any {
	return map[string]any{
		"transferId":   r.TransferID,
		"status":       string(r.Status),
		"sourceType":   string(req.SourceType),
		"targetType":   string(req.TargetType),
		"sourceAmount": r.Simulation.SourceAmount.String(),
		"targetAmount": r.Simulation.TargetAmount.String(),
	}
}

// TransferAllowed reports whether any transfer from source to target is
// possible for the user now, with a localized reason when it is not.
func (s *Advanced) TransferAllowed(ctx context.Context, userID generic.EntityID, source, target quota.LeaveType) (bool, string, error) {
	now := s.now()
	rules, err := s.backend.TransferRules(ctx)
	if err != nil {
		return false, "", s.fail("TransferAllowed", i18n.ErrFetchTransferRules, err)
	}
	balance, err := s.backend.LeaveBalance(ctx, userID, now.Year())
	if err != nil {
		return false, "", s.fail("TransferAllowed", i18n.ErrFetchBalance, err)
	}
	ok, reason := quota.TransferAllowed(balance, rules, source, target, now)
	return ok, reason.Render(s.printer), nil
}

// TransferHistory lists the user's transfers as returned by the backend.
func (s *Advanced) TransferHistory(ctx context.Context, userID generic.EntityID) ([]quota.TransferRecord, error) {
	rows, err := s.backend.TransferHistory(ctx, userID)
	if err != nil {
		return nil, s.fail("TransferHistory", i18n.ErrFetchHistory, err)
	}
	return rows, nil
}

// =============================================================================
// CARRY-OVER
// =============================================================================

// SimulateCarryOver evaluates a carry-over of the FromYear balance.
func (s *Advanced) SimulateCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverCalculation, error) {
	return simulateCarryOver(ctx, &s.core, "SimulateCarryOver", req, quota.AdvancedCarryOver)
}

func simulateCarryOver(ctx context.Context, c *core, op string, req quota.CarryOverRequest, policy quota.CarryOverPolicy) (quota.CarryOverCalculation, error) {
	var (
		balance quota.LeaveBalance
		rules   []quota.CarryOverRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := c.backend.LeaveBalance(gctx, req.UserID, req.FromYear)
		if err != nil {
			return c.fail(op, i18n.ErrFetchBalance, err)
		}
		balance = b
		return nil
	})
	g.Go(func() error {
		r, err := c.backend.CarryOverRules(gctx)
		if err != nil {
			return c.fail(op, i18n.ErrFetchCarryOverRules, err)
		}
		rules = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return quota.CarryOverCalculation{}, err
	}
	return quota.EvaluateCarryOver(balance, rules, req, policy, c.now()), nil
}

// ExecuteCarryOver simulates the carry-over and submits it when there is
// something to carry. Otherwise it returns a *quota.RejectionError
// wrapping quota.ErrNothingToCarryOver.
func (s *Advanced) ExecuteCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error) {
	calc, err := s.SimulateCarryOver(ctx, req)
	if err != nil {
		return quota.CarryOverResult{}, err
	}
	if !calc.Valid() {
		cause := quota.ErrNothingToCarryOver
		if calc.Reason != nil && !errors.Is(calc.Reason, quota.ErrNothingToCarryOver) {
			cause = fmt.Errorf("%w: %w", quota.ErrNothingToCarryOver, calc.Reason)
		}
		msg := i18n.NewNotice(i18n.CarryOverNothingToCarry).Render(s.printer)
		return quota.CarryOverResult{Calculation: calc, Message: msg}, &quota.RejectionError{Cause: cause, Message: msg}
	}

	submit := req
	submit.Amount = calc.CarryOverAmount
	submit.ToYear = req.TargetYear()
	result, err := s.backend.SubmitCarryOver(ctx, submit)
	if err != nil {
		return quota.CarryOverResult{Calculation: calc}, s.fail("ExecuteCarryOver", i18n.ErrCarryOver, err)
	}
	result.Calculation = calc
	if result.Message == "" {
		result.Message = calc.Message(s.printer)
	}
	s.publish(events.QuotaCarriedOver, string(req.UserID), carryOverPayload(submit, result))
	return result, nil
}

func carryOverPayload(req quota.CarryOverRequest, r quota.CarryOverResult) map[string]any {
	return map[string]any{
		"carryOverId": r.CarryOverID,
		"status":      string(r.Status),
		"leaveType":   string(req.LeaveType),
		"fromYear":    req.FromYear,
		"toYear":      req.ToYear,
		"amount":      r.Calculation.CarryOverAmount.String(),
	}
}

// CarryOverAllowed reports whether the user can carry over t from year.
func (s *Advanced) CarryOverAllowed(ctx context.Context, userID generic.EntityID, t quota.LeaveType, year int) (bool, string, error) {
	rules, err := s.backend.CarryOverRules(ctx)
	if err != nil {
		return false, "", s.fail("CarryOverAllowed", i18n.ErrFetchCarryOverRules, err)
	}
	balance, err := s.backend.LeaveBalance(ctx, userID, year)
	if err != nil {
		return false, "", s.fail("CarryOverAllowed", i18n.ErrFetchBalance, err)
	}
	ok, reason := quota.CarryOverAllowed(balance, rules, t)
	return ok, reason.Render(s.printer), nil
}

// CarryOverHistory lists the user's carry-overs as returned by the backend.
func (s *Advanced) CarryOverHistory(ctx context.Context, userID generic.EntityID) ([]quota.CarryOverRecord, error) {
	rows, err := s.backend.CarryOverHistory(ctx, userID)
	if err != nil {
		return nil, s.fail("CarryOverHistory", i18n.ErrFetchHistory, err)
	}
	return rows, nil
}

// =============================================================================
// STATE AND REPORTS
// =============================================================================

// EnhancedQuotaState fetches the balance and both histories concurrently
// and joins them. Any fetch failure fails the whole call.
func (s *Advanced) EnhancedQuotaState(ctx context.Context, userID generic.EntityID, year int) ([]quota.EnhancedQuotaState, error) {
	if year == 0 {
		year = s.now().Year()
	}
	var (
		balance    quota.LeaveBalance
		transfers  []quota.TransferRecord
		carryOvers []quota.CarryOverRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.backend.LeaveBalance(gctx, userID, year)
		if err != nil {
			return s.fail("EnhancedQuotaState", i18n.ErrFetchBalance, err)
		}
		balance = b
		return nil
	})
	g.Go(func() error {
		rows, err := s.backend.TransferHistory(gctx, userID)
		if err != nil {
			return s.fail("EnhancedQuotaState", i18n.ErrFetchHistory, err)
		}
		transfers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.backend.CarryOverHistory(gctx, userID)
		if err != nil {
			return s.fail("EnhancedQuotaState", i18n.ErrFetchHistory, err)
		}
		carryOvers = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quota.BuildEnhancedState(balance, transfers, carryOvers, year, s.now()), nil
}

// Statistics returns backend statistics for a user or a department.
func (s *Advanced) Statistics(ctx context.Context, q StatisticsQuery) (quota.QuotaStatistics, error) {
	if q.Year == 0 {
		q.Year = s.now().Year()
	}
	stats, err := s.backend.Statistics(ctx, q)
	if err != nil {
		return quota.QuotaStatistics{}, s.fail("Statistics", i18n.ErrReport, err)
	}
	return stats, nil
}

// Dashboard fetches the year's statistics and its transfer report grouped
// by user concurrently, optionally restricted to one department.
func (s *Advanced) Dashboard(ctx context.Context, year int, department string) (quota.Dashboard, error) {
	if year == 0 {
		year = s.now().Year()
	}
	opts := quota.ReportOptions{
		StartDate: generic.StartOfYear(year).Time,
		EndDate:   generic.EndOfYear(year).Time,
		GroupBy:   quota.GroupByUser,
	}
	if department != "" {
		opts.Departments = []string{department}
	}
	var (
		stats  quota.QuotaStatistics
		report quota.TransferReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.backend.Statistics(gctx, StatisticsQuery{Department: department, Year: year})
		if err != nil {
			return s.fail("Dashboard", i18n.ErrReport, err)
		}
		stats = st
		return nil
	})
	g.Go(func() error {
		r, err := s.backend.TransferReport(gctx, opts)
		if err != nil {
			return s.fail("Dashboard", i18n.ErrReport, err)
		}
		report = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return quota.Dashboard{}, err
	}
	return quota.BuildDashboard(year, department, stats, report.Summary), nil
}

// TransferReport builds a transfer report on the backend.
func (s *Advanced) TransferReport(ctx context.Context, opts quota.ReportOptions) (quota.TransferReport, error) {
	if err := opts.Validate(); err != nil {
		return quota.TransferReport{}, err
	}
	report, err := s.backend.TransferReport(ctx, opts)
	if err != nil {
		return quota.TransferReport{}, s.fail("TransferReport", i18n.ErrReport, err)
	}
	return report, nil
}

// ExportTransferReport validates the format and fetches the rendered
// report from the backend.
func (s *Advanced) ExportTransferReport(ctx context.Context, opts quota.ReportOptions) (Export, error) {
	format, err := quota.ParseExportFormat(string(opts.Format))
	if err != nil {
		return Export{}, err
	}
	opts.Format = format
	if err := opts.Validate(); err != nil {
		return Export{}, err
	}
	export, err := s.backend.ExportTransferReport(ctx, opts)
	if err != nil {
		return Export{}, s.fail("ExportTransferReport", i18n.ErrReport, err)
	}
	return export, nil
}
