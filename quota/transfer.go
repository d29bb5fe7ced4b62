/*
transfer.go - Transfer rule selection and evaluation

PURPOSE:
  Converts N days of one leave type into M days of another.

RULE SELECTION:
  The FIRST rule in backend order that is active, matches the
  source/target pair and is applicable now. Rules are not ranked by
  specificity. A rule is applicable when:
    1. now is inside [StartDate, EndDate] (each bound optional, EndDate
       inclusive through the end of its day)
    2. for SEASONAL rules, now is inside at least one seasonal window

EVALUATION ORDER:
  1. amount below the half-day minimum  -> invalid
  2. amount > remaining(source)         -> invalid, message states remaining
  3. no applicable rule                 -> invalid (RequireRule) or 1:1
  4. target = Convert(amount, ratio)
  5. caps clamp the target down: MaxTransferDays, then the converted value
     of remaining(source) x MaxTransferPercentage / 100

RATIO MODES:
  Two call paths historically disagreed on what "ratio" means:
    RatioMultiply: target = amount x ratio   (AdvancedTransfer)
    RatioDivide:   target = amount / ratio   (LegacyTransfer)
  Both are kept; callers pick a TransferPolicy explicitly.
*/
package quota

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
)

// MinimumTransferDays is the smallest transferable amount (half a day).
var MinimumTransferDays = Days(0.5)

// =============================================================================
// RULES
// =============================================================================

// TransferRule governs conversions from SourceType to TargetType.
type TransferRule struct {
	ID                    string
	SourceType            LeaveType
	TargetType            LeaveType
	Ratio                 decimal.Decimal // zero = 1
	MaxTransferDays       generic.Amount  // zero = no cap
	MaxTransferPercentage decimal.Decimal // zero = no cap
	RequiresApproval      bool
	RuleType              TransferRuleType
	Active                bool
	StartDate             time.Time // zero = open
	EndDate               time.Time // zero = open
	SeasonalPeriods       []Window
	Description           string
	Department            string
	ApplicableRoles       []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EffectiveRatio returns the ratio, defaulting to 1.
func (r TransferRule) EffectiveRatio() decimal.Decimal {
	if r.Ratio.IsZero() {
		return decimal.NewFromInt(1)
	}
	return r.Ratio
}

// Matches reports whether the rule is for the given pair.
func (r TransferRule) Matches(source, target LeaveType) bool {
	return r.SourceType == source && r.TargetType == target
}

// ApplicableAt reports whether the rule is active and in force at now.
func (r TransferRule) ApplicableAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	if !r.StartDate.IsZero() && now.Before(r.StartDate) {
		return false
	}
	if !r.EndDate.IsZero() && now.After(generic.EndOfDay(r.EndDate.Year(), r.EndDate.Month(), r.EndDate.Day())) {
		return false
	}
	if r.RuleType == TransferSeasonal && len(r.SeasonalPeriods) > 0 {
		for _, w := range r.SeasonalPeriods {
			if w.Contains(now) {
				return true
			}
		}
		return false
	}
	return true
}

// Validate checks the rule definition.
func (r TransferRule) Validate() error {
	if r.SourceType == "" || r.TargetType == "" {
		return invalidRule("source and target types are required")
	}
	if r.SourceType == r.TargetType {
		return invalidRule("source and target types must differ")
	}
	if r.Ratio.IsNegative() {
		return invalidRule("ratio must not be negative")
	}
	if r.MaxTransferDays.IsNegative() {
		return invalidRule("maxTransferDays must not be negative")
	}
	if r.MaxTransferPercentage.IsNegative() || r.MaxTransferPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return invalidRule("maxTransferPercentage must be within [0, 100]")
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return invalidRule("endDate before startDate")
	}
	for _, w := range r.SeasonalPeriods {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SelectTransferRule returns the first applicable rule for the pair, or nil.
func SelectTransferRule(rules []TransferRule, source, target LeaveType, now time.Time) *TransferRule {
	for i := range rules {
		if rules[i].Matches(source, target) && rules[i].ApplicableAt(now) {
			r := rules[i]
			return &r
		}
	}
	return nil
}

// ActiveTransferRules filters rules applicable at now, preserving order.
func ActiveTransferRules(rules []TransferRule, now time.Time) []TransferRule {
	var out []TransferRule
	for _, r := range rules {
		if r.ApplicableAt(now) {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// RATIO MODES
// =============================================================================

type RatioMode int

const (
	RatioMultiply RatioMode = iota // target = amount x ratio
	RatioDivide                    // target = amount / ratio
)

func (m RatioMode) String() string {
	if m == RatioDivide {
		return "divide"
	}
	return "multiply"
}

// Convert applies the ratio to a source amount.
func (m RatioMode) Convert(amount generic.Amount, ratio decimal.Decimal) generic.Amount {
	if ratio.IsZero() {
		ratio = decimal.NewFromInt(1)
	}
	if m == RatioDivide {
		return amount.Div(ratio)
	}
	return amount.Mul(ratio)
}

// TransferPolicy selects one of the two historical transfer call paths.
type TransferPolicy struct {
	Ratio RatioMode
	// RequireRule rejects pairs without an applicable rule. When false, a
	// missing rule means a 1:1 conversion.
	RequireRule bool
	// Legacy switches messages to the simulation-path wording.
	Legacy bool
}

var (
	AdvancedTransfer = TransferPolicy{Ratio: RatioMultiply, RequireRule: true}
	LegacyTransfer   = TransferPolicy{Ratio: RatioDivide, RequireRule: false, Legacy: true}
)

// =============================================================================
// EVALUATION
// =============================================================================

// TransferRequest asks to move Amount days from SourceType to TargetType.
type TransferRequest struct {
	UserID     generic.EntityID
	SourceType LeaveType
	TargetType LeaveType
	Amount     generic.Amount
	Year       int // balance year, zero = current year
	// IgnoreRules skips rule lookup and converts 1:1.
	IgnoreRules bool
	Comment     string
}

// BalanceYear resolves the defaulted Year against now.
func (r TransferRequest) BalanceYear(now time.Time) int {
	if r.Year == 0 {
		return now.Year()
	}
	return r.Year
}

// TransferSimulation is the transient outcome of evaluating a transfer.
type TransferSimulation struct {
	Request          TransferRequest
	Valid            bool
	SourceAmount     generic.Amount
	TargetAmount     generic.Amount
	SourceRemaining  generic.Amount // remaining after the transfer, or current remaining when invalid
	TargetTotal      generic.Amount // target allowance after the transfer
	AppliedRatio     decimal.Decimal
	AppliedRule      *TransferRule
	Capped           bool
	RequiresApproval bool
	Notices          []i18n.Notice
	// Reason is nil when Valid; otherwise it wraps generic.ErrInsufficientBalance,
	// ErrNoApplicableRule or generic.ErrInvalidInput.
	Reason error
}

// EvaluateTransfer runs the transfer calculation against a balance and the
// backend's rules. Business rejections are reported in the result, never
// as an error.
func EvaluateTransfer(b LeaveBalance, rules []TransferRule, req TransferRequest, policy TransferPolicy, now time.Time) TransferSimulation {
	one := decimal.NewFromInt(1)
	remaining := b.Remaining(req.SourceType)
	sim := TransferSimulation{
		Request:         req,
		SourceAmount:    req.Amount,
		TargetAmount:    zeroDays(),
		SourceRemaining: remaining,
		TargetTotal:     b.Total(req.TargetType),
		AppliedRatio:    one,
	}
	sourceLabel := i18n.Label(i18n.LabelKey(string(req.SourceType)))
	targetLabel := i18n.Label(i18n.LabelKey(string(req.TargetType)))

	if req.Amount.LessThan(MinimumTransferDays) {
		sim.Reason = generic.ErrInvalidInput
		sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferInvalidAmount, MinimumTransferDays.String()))
		return sim
	}

	if req.Amount.GreaterThan(remaining) {
		sim.Reason = &generic.InsufficientBalanceError{
			EntityID:     b.UserID,
			ResourceType: req.SourceType,
			Available:    remaining,
			Requested:    req.Amount,
		}
		if policy.Legacy {
			sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferInsufficientLegacy, remaining.String()))
		} else {
			sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferInsufficient, remaining.String(), sourceLabel))
		}
		return sim
	}

	var rule *TransferRule
	if !req.IgnoreRules {
		rule = SelectTransferRule(rules, req.SourceType, req.TargetType, now)
		if rule == nil && policy.RequireRule {
			sim.Reason = &NoRuleError{Source: req.SourceType, Target: req.TargetType}
			sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferNoRule, sourceLabel, targetLabel))
			return sim
		}
	}

	ratio := one
	if rule != nil {
		ratio = rule.EffectiveRatio()
	}
	target := policy.Ratio.Convert(req.Amount, ratio)

	if rule != nil {
		if rule.MaxTransferDays.IsPositive() && target.GreaterThan(rule.MaxTransferDays) {
			target = rule.MaxTransferDays
			sim.Capped = true
			sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferCapped, target.String(), rule.MaxTransferDays.String()))
		}
		if rule.MaxTransferPercentage.IsPositive() {
			limit := policy.Ratio.Convert(remaining.Percent(rule.MaxTransferPercentage), ratio)
			if target.GreaterThan(limit) {
				target = limit
				sim.Capped = true
				sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferCapped, target.String(), rule.MaxTransferPercentage.String()+"%"))
			}
		}
		sim.RequiresApproval = rule.RequiresApproval
	}

	sim.Valid = true
	sim.TargetAmount = target
	sim.AppliedRatio = ratio
	sim.AppliedRule = rule
	sim.SourceRemaining = remaining.Sub(req.Amount)
	sim.TargetTotal = b.Total(req.TargetType).Add(target)

	summary := i18n.NewNotice(i18n.TransferConverts, req.Amount.String(), sourceLabel, target.String(), targetLabel)
	if policy.Legacy {
		summary = i18n.NewNotice(i18n.TransferLegacySummary, req.Amount.String(), sourceLabel, targetLabel, ratio.String())
	}
	notices := []i18n.Notice{summary}
	if rule != nil && !policy.Legacy {
		var desc any = i18n.Label(i18n.TransferStandardRule)
		if rule.Description != "" {
			desc = rule.Description
		}
		notices = append(notices, i18n.NewNotice(i18n.TransferRuleApplied, desc, ratio.String()))
	}
	if sim.RequiresApproval {
		sim.Notices = append(sim.Notices, i18n.NewNotice(i18n.TransferRequiresApproval))
	}
	sim.Notices = append(notices, sim.Notices...)
	return sim
}

// TransferAllowed reports whether any transfer from source to target is
// possible now, with a reason when it is not.
func TransferAllowed(b LeaveBalance, rules []TransferRule, source, target LeaveType, now time.Time) (bool, i18n.Notice) {
	if SelectTransferRule(rules, source, target, now) == nil {
		return false, i18n.NewNotice(i18n.TransferNoRule,
			i18n.Label(i18n.LabelKey(string(source))), i18n.Label(i18n.LabelKey(string(target))))
	}
	if !b.Remaining(source).IsPositive() {
		return false, i18n.NewNotice(i18n.TransferNothingAvailable, i18n.Label(i18n.LabelKey(string(source))))
	}
	return true, i18n.Notice{}
}

// AvailableSourceTypes lists source types with at least one applicable rule,
// in first-seen order.
func AvailableSourceTypes(rules []TransferRule, now time.Time) []LeaveType {
	seen := make(map[LeaveType]bool)
	var out []LeaveType
	for _, r := range rules {
		if r.ApplicableAt(now) && !seen[r.SourceType] {
			seen[r.SourceType] = true
			out = append(out, r.SourceType)
		}
	}
	return out
}

// AvailableTargetTypes lists targets reachable from source now.
func AvailableTargetTypes(rules []TransferRule, source LeaveType, now time.Time) []LeaveType {
	seen := make(map[LeaveType]bool)
	var out []LeaveType
	for _, r := range rules {
		if r.SourceType == source && r.ApplicableAt(now) && !seen[r.TargetType] {
			seen[r.TargetType] = true
			out = append(out, r.TargetType)
		}
	}
	return out
}

// ConversionRatio returns the ratio of the rule governing the pair, or 1.
func ConversionRatio(rules []TransferRule, source, target LeaveType, now time.Time) decimal.Decimal {
	if r := SelectTransferRule(rules, source, target, now); r != nil {
		return r.EffectiveRatio()
	}
	return decimal.NewFromInt(1)
}

// Message renders the simulation's notices.
func (s TransferSimulation) Message(p *message.Printer) string {
	return i18n.Join(p, s.Notices...)
}
