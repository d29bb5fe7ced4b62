package service

import (
	"context"
	"time"

	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
)

// Legacy is the simulation-only quota service. Its transfers divide by
// the ratio and fall back to 1:1 without a rule; its carry-overs round to
// half days and default to 50% expiring after 6 months.
type Legacy struct {
	core
}

// NewLegacy creates a Legacy service over backend.
func NewLegacy(backend Backend, opts ...Option) *Legacy {
	return &Legacy{core: newCore(backend, opts)}
}

// SimulateQuotaTransfer evaluates a transfer on the simulation path.
func (s *Legacy) SimulateQuotaTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferSimulation, error) {
	return simulateTransfer(ctx, &s.core, "SimulateQuotaTransfer", req, quota.LegacyTransfer)
}

// SimulateCarryOverCalculation evaluates a carry-over on the simulation path.
func (s *Legacy) SimulateCarryOverCalculation(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverCalculation, error) {
	return simulateCarryOver(ctx, &s.core, "SimulateCarryOverCalculation", req, quota.LegacyCarryOver)
}

// ActiveSpecialPeriodsForDate returns the active special periods containing date.
func (s *Legacy) ActiveSpecialPeriodsForDate(ctx context.Context, date time.Time) ([]quota.SpecialPeriodRule, error) {
	rules, err := s.backend.SpecialPeriods(ctx)
	if err != nil {
		return nil, s.fail("ActiveSpecialPeriodsForDate", i18n.ErrSpecialPeriods, err)
	}
	return quota.ActiveSpecialPeriods(date, rules), nil
}

// SpecialPeriods lists every special period rule.
func (s *Legacy) SpecialPeriods(ctx context.Context) ([]quota.SpecialPeriodRule, error) {
	rules, err := s.backend.SpecialPeriods(ctx)
	if err != nil {
		return nil, s.fail("SpecialPeriods", i18n.ErrSpecialPeriods, err)
	}
	return rules, nil
}
