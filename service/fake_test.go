package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

var errBackendDown = errors.New("backend down")

func days(v float64) generic.Amount { return quota.Days(v) }

func clock() time.Time { return testNow }

// fakeBackend is an in-memory service.Backend. Setting fail[method] makes
// that method return the error.
type fakeBackend struct {
	mu sync.Mutex

	balances       map[int]quota.LeaveBalance
	transferRules  []quota.TransferRule
	carryOverRules []quota.CarryOverRule
	specialPeriods []quota.SpecialPeriodRule
	transfers      []quota.TransferRecord
	carryOvers     []quota.CarryOverRecord
	transactions   []generic.Transaction

	submittedTransfers  []quota.TransferRequest
	submittedCarryOvers []quota.CarryOverRequest
	decisions           []service.Decision
	adjustments         []service.Adjustment
	deleted             []string

	fail map[string]error
}

var _ service.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	b := quota.NewLeaveBalance("emp-1", 2025)
	b.SetAllowance(quota.LeaveAnnual, days(25))
	d := b.Detail(quota.LeaveAnnual)
	d.Used, d.Pending = days(8), days(2)
	b.DetailsByType[quota.LeaveAnnual] = d
	b.SetAllowance(quota.LeaveRecovery, days(7))

	return &fakeBackend{
		balances: map[int]quota.LeaveBalance{2025: b},
		transferRules: []quota.TransferRule{{
			ID: "tr-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery,
			Ratio: decimal.RequireFromString("0.5"), RuleType: quota.TransferStandard, Active: true,
		}},
		carryOverRules: []quota.CarryOverRule{{
			ID: "co-1", LeaveType: quota.LeaveAnnual, RuleType: quota.CarryOverPercentage,
			Value: decimal.NewFromInt(50), Active: true,
		}},
		fail: make(map[string]error),
	}
}

func (f *fakeBackend) err(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[method]
}

func (f *fakeBackend) LeaveBalance(_ context.Context, userID generic.EntityID, year int) (quota.LeaveBalance, error) {
	if err := f.err("LeaveBalance"); err != nil {
		return quota.LeaveBalance{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[year]
	if !ok {
		return quota.NewLeaveBalance(userID, year), nil
	}
	return b, nil
}

func (f *fakeBackend) TransferRules(context.Context) ([]quota.TransferRule, error) {
	return f.transferRules, f.err("TransferRules")
}

func (f *fakeBackend) CarryOverRules(context.Context) ([]quota.CarryOverRule, error) {
	return f.carryOverRules, f.err("CarryOverRules")
}

func (f *fakeBackend) SpecialPeriods(context.Context) ([]quota.SpecialPeriodRule, error) {
	return f.specialPeriods, f.err("SpecialPeriods")
}

func (f *fakeBackend) SaveTransferRule(_ context.Context, r quota.TransferRule) (quota.TransferRule, error) {
	if err := f.err("SaveTransferRule"); err != nil {
		return quota.TransferRule{}, err
	}
	if r.ID == "" {
		r.ID = "tr-new"
	}
	f.transferRules = append(f.transferRules, r)
	return r, nil
}

func (f *fakeBackend) DeleteTransferRule(_ context.Context, id string) error {
	if err := f.err("DeleteTransferRule"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) SaveCarryOverRule(_ context.Context, r quota.CarryOverRule) (quota.CarryOverRule, error) {
	if err := f.err("SaveCarryOverRule"); err != nil {
		return quota.CarryOverRule{}, err
	}
	if r.ID == "" {
		r.ID = "co-new"
	}
	return r, nil
}

func (f *fakeBackend) DeleteCarryOverRule(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err("DeleteCarryOverRule")
}

func (f *fakeBackend) SaveSpecialPeriod(_ context.Context, r quota.SpecialPeriodRule) (quota.SpecialPeriodRule, error) {
	if r.ID == "" {
		r.ID = "sp-new"
	}
	return r, f.err("SaveSpecialPeriod")
}

func (f *fakeBackend) DeleteSpecialPeriod(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err("DeleteSpecialPeriod")
}

func (f *fakeBackend) TransferHistory(context.Context, generic.EntityID) ([]quota.TransferRecord, error) {
	if err := f.err("TransferHistory"); err != nil {
		return nil, err
	}
	return f.transfers, nil
}

func (f *fakeBackend) CarryOverHistory(context.Context, generic.EntityID) ([]quota.CarryOverRecord, error) {
	if err := f.err("CarryOverHistory"); err != nil {
		return nil, err
	}
	return f.carryOvers, nil
}

func (f *fakeBackend) Transactions(context.Context, service.TransactionQuery) ([]generic.Transaction, error) {
	return f.transactions, f.err("Transactions")
}

func (f *fakeBackend) SubmitTransfer(_ context.Context, req quota.TransferRequest) (quota.TransferResult, error) {
	if err := f.err("SubmitTransfer"); err != nil {
		return quota.TransferResult{}, err
	}
	f.submittedTransfers = append(f.submittedTransfers, req)
	return quota.TransferResult{Success: true, TransferID: "t-1", Status: quota.StatusCompleted}, nil
}

func (f *fakeBackend) SubmitCarryOver(_ context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error) {
	if err := f.err("SubmitCarryOver"); err != nil {
		return quota.CarryOverResult{}, err
	}
	f.submittedCarryOvers = append(f.submittedCarryOvers, req)
	return quota.CarryOverResult{Success: true, CarryOverID: "c-1", Status: quota.StatusCompleted}, nil
}

func (f *fakeBackend) ProcessTransfer(_ context.Context, d service.Decision) (quota.TransferRecord, error) {
	if err := f.err("ProcessTransfer"); err != nil {
		return quota.TransferRecord{}, err
	}
	f.decisions = append(f.decisions, d)
	status := quota.StatusRejected
	if d.Approve {
		status = quota.StatusCompleted
	}
	return quota.TransferRecord{ID: d.RequestID, UserID: "emp-1", Status: status, ProcessedBy: d.ProcessedBy}, nil
}

func (f *fakeBackend) ProcessCarryOver(_ context.Context, d service.Decision) (quota.CarryOverRecord, error) {
	if err := f.err("ProcessCarryOver"); err != nil {
		return quota.CarryOverRecord{}, err
	}
	f.decisions = append(f.decisions, d)
	return quota.CarryOverRecord{ID: d.RequestID, UserID: "emp-1", Status: quota.StatusApproved, ProcessedBy: d.ProcessedBy}, nil
}

func (f *fakeBackend) AdjustBalance(_ context.Context, a service.Adjustment) (quota.LeaveBalance, error) {
	if err := f.err("AdjustBalance"); err != nil {
		return quota.LeaveBalance{}, err
	}
	f.adjustments = append(f.adjustments, a)
	b := f.balances[a.Year]
	b.SetAllowance(a.LeaveType, b.Total(a.LeaveType).Add(a.Amount))
	return b, nil
}

func (f *fakeBackend) TransferReport(_ context.Context, opts quota.ReportOptions) (quota.TransferReport, error) {
	if err := f.err("TransferReport"); err != nil {
		return quota.TransferReport{}, err
	}
	return quota.BuildTransferReport(f.transfers, opts), nil
}

func (f *fakeBackend) ExportTransferReport(_ context.Context, opts quota.ReportOptions) (service.Export, error) {
	if err := f.err("ExportTransferReport"); err != nil {
		return service.Export{}, err
	}
	return service.Export{Format: opts.Format, ContentType: opts.Format.ContentType(), Data: []byte("report")}, nil
}

func (f *fakeBackend) Statistics(_ context.Context, q service.StatisticsQuery) (quota.QuotaStatistics, error) {
	if err := f.err("Statistics"); err != nil {
		return quota.QuotaStatistics{}, err
	}
	return quota.ComputeStatistics(quota.BuildEnhancedState(f.balances[q.Year], nil, nil, q.Year, testNow)), nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func options(rec *recorder) []service.Option {
	return []service.Option{
		service.WithClock(clock),
		service.WithBus(rec),
		service.WithLogger(log.New(io.Discard, "", 0)),
	}
}
