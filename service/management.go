package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
)

// Management handles the request/approval workflow, availability checks,
// manual adjustments, rule configuration and expiry alerts.
type Management struct {
	core
}

// NewManagement creates a Management service over backend.
func NewManagement(backend Backend, opts ...Option) *Management {
	return &Management{core: newCore(backend, opts)}
}

// =============================================================================
// REQUEST WORKFLOW
// =============================================================================

// RequestTransfer submits a transfer; the backend evaluates it.
func (s *Management) RequestTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferResult, error) {
	result, err := s.backend.SubmitTransfer(ctx, req)
	if err != nil {
		return quota.TransferResult{}, s.fail("RequestTransfer", i18n.ErrTransfer, err)
	}
	s.publish(events.QuotaTransferred, string(req.UserID), transferPayload(req, result))
	return result, nil
}

// ProcessTransfer approves or rejects a pending transfer.
func (s *Management) ProcessTransfer(ctx context.Context, d Decision) (quota.TransferRecord, error) {
	rec, err := s.backend.ProcessTransfer(ctx, d)
	if err != nil {
		return quota.TransferRecord{}, s.fail("ProcessTransfer", i18n.ErrProcessRequest, err)
	}
	s.publish(events.QuotaTransferred, string(rec.UserID), map[string]any{
		"transferId":  rec.ID,
		"status":      string(rec.Status),
		"processedBy": rec.ProcessedBy,
	})
	return rec, nil
}

// RequestCarryOver submits a carry-over; the backend evaluates it.
func (s *Management) RequestCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error) {
	result, err := s.backend.SubmitCarryOver(ctx, req)
	if err != nil {
		return quota.CarryOverResult{}, s.fail("RequestCarryOver", i18n.ErrCarryOver, err)
	}
	s.publish(events.QuotaCarriedOver, string(req.UserID), carryOverPayload(req, result))
	return result, nil
}

// ProcessCarryOver approves or rejects a pending carry-over.
func (s *Management) ProcessCarryOver(ctx context.Context, d Decision) (quota.CarryOverRecord, error) {
	rec, err := s.backend.ProcessCarryOver(ctx, d)
	if err != nil {
		return quota.CarryOverRecord{}, s.fail("ProcessCarryOver", i18n.ErrProcessRequest, err)
	}
	s.publish(events.QuotaCarriedOver, string(rec.UserID), map[string]any{
		"carryOverId": rec.ID,
		"status":      string(rec.Status),
		"processedBy": rec.ProcessedBy,
	})
	return rec, nil
}

// =============================================================================
// BALANCES
// =============================================================================

// CalculateAvailability checks requested days of t against the user's
// balance for year.
func (s *Management) CalculateAvailability(ctx context.Context, userID generic.EntityID, t quota.LeaveType, year int, requested generic.Amount) (quota.Availability, error) {
	if year == 0 {
		year = s.now().Year()
	}
	balance, err := s.backend.LeaveBalance(ctx, userID, year)
	if err != nil {
		return quota.Availability{}, s.fail("CalculateAvailability", i18n.ErrFetchBalance, err)
	}
	return quota.CalculateAvailability(balance, t, requested), nil
}

// AdjustBalance applies a manual correction and returns the new balance.
func (s *Management) AdjustBalance(ctx context.Context, a Adjustment) (quota.LeaveBalance, error) {
	if a.Year == 0 {
		a.Year = s.now().Year()
	}
	if a.Amount.IsZero() {
		return quota.LeaveBalance{}, generic.ErrInvalidInput
	}
	b, err := s.backend.AdjustBalance(ctx, a)
	if err != nil {
		return quota.LeaveBalance{}, s.fail("AdjustBalance", i18n.ErrAdjust, err)
	}
	s.publish(events.QuotaUpdated, string(a.UserID), map[string]any{
		"leaveType": string(a.LeaveType),
		"year":      a.Year,
		"amount":    a.Amount.String(),
		"reason":    a.Reason,
		"adminId":   a.AdminID,
	})
	return b, nil
}

// QuotaSummary returns balances, pending requests and expiring days.
func (s *Management) QuotaSummary(ctx context.Context, userID generic.EntityID, year int) (quota.QuotaSummary, error) {
	if year == 0 {
		year = s.now().Year()
	}
	var (
		balance    quota.LeaveBalance
		transfers  []quota.TransferRecord
		carryOvers []quota.CarryOverRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if balance, err = s.backend.LeaveBalance(gctx, userID, year); err != nil {
			return s.fail("QuotaSummary", i18n.ErrFetchBalance, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if transfers, err = s.backend.TransferHistory(gctx, userID); err != nil {
			return s.fail("QuotaSummary", i18n.ErrFetchHistory, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if carryOvers, err = s.backend.CarryOverHistory(gctx, userID); err != nil {
			return s.fail("QuotaSummary", i18n.ErrFetchHistory, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return quota.QuotaSummary{}, err
	}
	return quota.BuildSummary(balance, transfers, carryOvers, s.now()), nil
}

// TransactionHistory lists ledger entries matching q.
func (s *Management) TransactionHistory(ctx context.Context, q TransactionQuery) ([]generic.Transaction, error) {
	txs, err := s.backend.Transactions(ctx, q)
	if err != nil {
		return nil, s.fail("TransactionHistory", i18n.ErrFetchHistory, err)
	}
	return txs, nil
}

// NotifyQuotaAlerts publishes QUOTA_EXPIRING for each landed carry-over
// batch of the user expiring within 30 days, and returns the alerts.
func (s *Management) NotifyQuotaAlerts(ctx context.Context, userID generic.EntityID) ([]quota.ExpiringAlert, error) {
	rows, err := s.backend.CarryOverHistory(ctx, userID)
	if err != nil {
		return nil, s.fail("NotifyQuotaAlerts", i18n.ErrFetchHistory, err)
	}
	alerts := quota.ExpiringAlerts(rows, s.now())
	for _, a := range alerts {
		s.publish(events.QuotaExpiring, string(userID), map[string]any{
			"carryOverId":     a.Record.ID,
			"leaveType":       string(a.Record.LeaveType),
			"amount":          a.Record.CarriedAmount.String(),
			"expiryDate":      a.Record.ExpiryDate.Format(generic.DateLayout),
			"daysUntilExpiry": a.DaysUntilExpiry,
			"message":         a.Notice.Render(s.printer),
		})
	}
	return alerts, nil
}

// =============================================================================
// RULE CONFIGURATION
// =============================================================================

// SaveTransferRule validates and stores a transfer rule.
func (s *Management) SaveTransferRule(ctx context.Context, r quota.TransferRule) (quota.TransferRule, error) {
	if err := r.Validate(); err != nil {
		return quota.TransferRule{}, err
	}
	saved, err := s.backend.SaveTransferRule(ctx, r)
	if err != nil {
		return quota.TransferRule{}, s.fail("SaveTransferRule", i18n.ErrFetchTransferRules, err)
	}
	s.configUpdated("transferRule", saved.ID, "saved")
	return saved, nil
}

// DeleteTransferRule removes a transfer rule.
func (s *Management) DeleteTransferRule(ctx context.Context, id string) error {
	if err := s.backend.DeleteTransferRule(ctx, id); err != nil {
		return s.fail("DeleteTransferRule", i18n.ErrFetchTransferRules, err)
	}
	s.configUpdated("transferRule", id, "deleted")
	return nil
}

// SaveCarryOverRule validates and stores a carry-over rule.
func (s *Management) SaveCarryOverRule(ctx context.Context, r quota.CarryOverRule) (quota.CarryOverRule, error) {
	if err := r.Validate(); err != nil {
		return quota.CarryOverRule{}, err
	}
	saved, err := s.backend.SaveCarryOverRule(ctx, r)
	if err != nil {
		return quota.CarryOverRule{}, s.fail("SaveCarryOverRule", i18n.ErrFetchCarryOverRules, err)
	}
	s.configUpdated("carryOverRule", saved.ID, "saved")
	return saved, nil
}

// DeleteCarryOverRule removes a carry-over rule.
func (s *Management) DeleteCarryOverRule(ctx context.Context, id string) error {
	if err := s.backend.DeleteCarryOverRule(ctx, id); err != nil {
		return s.fail("DeleteCarryOverRule", i18n.ErrFetchCarryOverRules, err)
	}
	s.configUpdated("carryOverRule", id, "deleted")
	return nil
}

// SaveSpecialPeriod validates and stores a special period.
func (s *Management) SaveSpecialPeriod(ctx context.Context, r quota.SpecialPeriodRule) (quota.SpecialPeriodRule, error) {
	if err := r.Validate(); err != nil {
		return quota.SpecialPeriodRule{}, err
	}
	saved, err := s.backend.SaveSpecialPeriod(ctx, r)
	if err != nil {
		return quota.SpecialPeriodRule{}, s.fail("SaveSpecialPeriod", i18n.ErrSpecialPeriods, err)
	}
	s.configUpdated("specialPeriod", saved.ID, "saved")
	return saved, nil
}

// DeleteSpecialPeriod removes a special period.
func (s *Management) DeleteSpecialPeriod(ctx context.Context, id string) error {
	if err := s.backend.DeleteSpecialPeriod(ctx, id); err != nil {
		return s.fail("DeleteSpecialPeriod", i18n.ErrSpecialPeriods, err)
	}
	s.configUpdated("specialPeriod", id, "deleted")
	return nil
}

func (s *Management) configUpdated(kind, id, action string) {
	s.publish(events.QuotaConfigUpdated, "", map[string]any{"kind": kind, "id": id, "action": action})
}
