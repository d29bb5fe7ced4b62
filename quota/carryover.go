/*
carryover.go - Carry-over rule selection and evaluation

PURPOSE:
  Moves unused days of a leave type from one year into the next, capped by
  the governing rule and optionally expiring.

ELIGIBLE AMOUNT BY RULE TYPE (m = remaining, v = rule value):
  PERCENTAGE        m x v / 100 (floored on the advanced path)
  FIXED, MAX_DAYS   min(m, v)
  ALL, UNLIMITED    m
  EXPIRABLE         m, capped at v when v > 0
  MaxCarryOverDays caps the result when set.

ROUNDING:
  The advanced path floors PERCENTAGE results and leaves other types
  exact. The simulation path rounds every result to the nearest half day.
  Both are kept as CarryOverPolicy values.

EXPIRY:
  ExpiryMonths > 0    start of toYear + months
  ExpirationDays > 0  start of toYear + days
  otherwise           Dec 31 of toYear + 10 (never expires in practice)
  The simulation path computes the offset from now instead.
*/
package quota

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
)

// LegacyDateLayout is the dd/MM/yyyy format of simulation-path messages.
const LegacyDateLayout = "02/01/2006"

// NoExpiryYears is how far the sentinel expiry lies beyond the target year.
const NoExpiryYears = 10

// CarryOverRule governs how many unused days of LeaveType roll over.
type CarryOverRule struct {
	ID               string
	LeaveType        LeaveType
	RuleType         CarryOverRuleType
	Value            decimal.Decimal
	MaxCarryOverDays generic.Amount // zero = no cap
	ExpiryMonths     int
	ExpirationDays   int
	RequiresApproval bool
	Active           bool
	Description      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultCarryOverRule is applied by the simulation path when no rule
// matches: 50% of the remaining days, expiring after 6 months.
var DefaultCarryOverRule = CarryOverRule{
	ID:           "default",
	RuleType:     CarryOverPercentage,
	Value:        decimal.NewFromInt(50),
	ExpiryMonths: 6,
	Active:       true,
}

// Validate checks the rule definition.
func (r CarryOverRule) Validate() error {
	if r.LeaveType == "" {
		return invalidRule("leave type is required")
	}
	switch r.RuleType {
	case CarryOverPercentage:
		if r.Value.IsNegative() || r.Value.GreaterThan(decimal.NewFromInt(100)) {
			return invalidRule("percentage must be within [0, 100]")
		}
	case CarryOverFixed, CarryOverMaxDays, CarryOverExpirable:
		if r.Value.IsNegative() {
			return invalidRule("value must not be negative")
		}
	case CarryOverAll, CarryOverUnlimited:
	default:
		return invalidRule("unknown carry-over rule type %q", r.RuleType)
	}
	if r.RuleType == CarryOverExpirable && r.ExpiryMonths <= 0 && r.ExpirationDays <= 0 {
		return invalidRule("expirable rules need expiryMonths or expirationDays")
	}
	if r.ExpiryMonths < 0 || r.ExpirationDays < 0 {
		return invalidRule("expiry offsets must not be negative")
	}
	if r.MaxCarryOverDays.IsNegative() {
		return invalidRule("maxCarryOverDays must not be negative")
	}
	return nil
}

// Expires reports whether carried days under this rule ever expire.
func (r CarryOverRule) Expires() bool {
	return r.ExpiryMonths > 0 || r.ExpirationDays > 0
}

// ExpiryDate returns the expiry of days carried into toYear.
func (r CarryOverRule) ExpiryDate(toYear int) time.Time {
	return r.expiryFrom(generic.StartOfYear(toYear).Time, toYear)
}

func (r CarryOverRule) expiryFrom(base time.Time, toYear int) time.Time {
	switch {
	case r.ExpiryMonths > 0:
		return base.AddDate(0, r.ExpiryMonths, 0)
	case r.ExpirationDays > 0:
		return base.AddDate(0, 0, r.ExpirationDays)
	default:
		return generic.EndOfYear(toYear + NoExpiryYears).Time
	}
}

// SelectCarryOverRule returns the first active rule for the leave type, or nil.
func SelectCarryOverRule(rules []CarryOverRule, t LeaveType) *CarryOverRule {
	for i := range rules {
		if rules[i].LeaveType == t && rules[i].Active {
			r := rules[i]
			return &r
		}
	}
	return nil
}

// ActiveCarryOverRules filters active rules, preserving order.
func ActiveCarryOverRules(rules []CarryOverRule) []CarryOverRule {
	var out []CarryOverRule
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// POLICIES
// =============================================================================

type CarryOverRounding int

const (
	// RoundPercentageDown floors PERCENTAGE results only.
	RoundPercentageDown CarryOverRounding = iota
	// RoundHalfDay rounds every result to the nearest 0.5.
	RoundHalfDay
)

// CarryOverPolicy selects one of the two historical carry-over call paths.
type CarryOverPolicy struct {
	Rounding CarryOverRounding
	// Default fills a missing rule, and the zero-valued type, value and
	// expiryMonths of a matched one.
	Default *CarryOverRule
	// ExpiryFromNow anchors the expiry offset at evaluation time instead of
	// the start of the target year.
	ExpiryFromNow bool
	// Legacy switches messages to the simulation-path wording.
	Legacy bool
}

var (
	AdvancedCarryOver = CarryOverPolicy{Rounding: RoundPercentageDown}
	LegacyCarryOver   = CarryOverPolicy{Rounding: RoundHalfDay, Default: &DefaultCarryOverRule, ExpiryFromNow: true, Legacy: true}
)

func (p CarryOverPolicy) resolve(rule *CarryOverRule) *CarryOverRule {
	if p.Default == nil {
		return rule
	}
	if rule == nil {
		d := *p.Default
		return &d
	}
	r := *rule
	if r.RuleType == "" {
		r.RuleType = p.Default.RuleType
	}
	if r.Value.IsZero() {
		r.Value = p.Default.Value
	}
	if r.ExpiryMonths == 0 {
		r.ExpiryMonths = p.Default.ExpiryMonths
	}
	return &r
}

// =============================================================================
// EVALUATION
// =============================================================================

// CarryOverRequest asks to carry days of LeaveType from FromYear to ToYear.
type CarryOverRequest struct {
	UserID    generic.EntityID
	LeaveType LeaveType
	FromYear  int
	ToYear    int            // zero = FromYear + 1
	Amount    generic.Amount // zero = everything eligible
	Comment   string
}

// TargetYear resolves the defaulted ToYear.
func (r CarryOverRequest) TargetYear() int {
	if r.ToYear == 0 {
		return r.FromYear + 1
	}
	return r.ToYear
}

// CarryOverCalculation is the transient outcome of evaluating a carry-over.
type CarryOverCalculation struct {
	Request              CarryOverRequest
	OriginalRemaining    generic.Amount
	EligibleForCarryOver generic.Amount
	CarryOverAmount      generic.Amount
	ExpiryDate           time.Time
	Expires              bool
	AppliedRule          *CarryOverRule
	RequiresApproval     bool
	Notices              []i18n.Notice
	// Reason explains a zero result: NoRuleError, ErrNothingToCarryOver or
	// generic.ErrInvalidPeriod. Nil otherwise.
	Reason error
}

// Valid reports whether there is something to carry over.
func (c CarryOverCalculation) Valid() bool {
	return c.Reason == nil && c.CarryOverAmount.IsPositive()
}

// Message renders the calculation's notices.
func (c CarryOverCalculation) Message(p *message.Printer) string {
	return i18n.Join(p, c.Notices...)
}

// EligibleAmount applies the rule type, cap and rounding to remaining.
func EligibleAmount(rule CarryOverRule, remaining generic.Amount, rounding CarryOverRounding) generic.Amount {
	var eligible generic.Amount
	switch rule.RuleType {
	case CarryOverPercentage:
		eligible = remaining.Percent(rule.Value)
		if rounding == RoundPercentageDown {
			eligible = eligible.Floor()
		}
	case CarryOverFixed, CarryOverMaxDays:
		eligible = remaining.Min(generic.NewAmountFromDecimal(rule.Value, remaining.Unit))
	case CarryOverAll, CarryOverUnlimited:
		eligible = remaining
	case CarryOverExpirable:
		eligible = remaining
		if rule.Value.IsPositive() {
			eligible = remaining.Min(generic.NewAmountFromDecimal(rule.Value, remaining.Unit))
		}
	default:
		eligible = remaining.Zero()
	}
	if rule.MaxCarryOverDays.IsPositive() {
		eligible = eligible.Min(rule.MaxCarryOverDays)
	}
	if rounding == RoundHalfDay {
		eligible = eligible.RoundToHalf()
	}
	return eligible.ClampZero()
}

// EvaluateCarryOver runs the carry-over calculation for the balance of
// FromYear. A missing rule or an empty balance yields a zero result with an
// explanatory notice, never an error.
func EvaluateCarryOver(b LeaveBalance, rules []CarryOverRule, req CarryOverRequest, policy CarryOverPolicy, now time.Time) CarryOverCalculation {
	toYear := req.TargetYear()
	calc := CarryOverCalculation{
		Request:              req,
		OriginalRemaining:    zeroDays(),
		EligibleForCarryOver: zeroDays(),
		CarryOverAmount:      zeroDays(),
		ExpiryDate:           now,
	}
	label := i18n.Label(i18n.LabelKey(string(req.LeaveType)))

	if toYear <= req.FromYear {
		calc.Reason = generic.ErrInvalidPeriod
		calc.Notices = []i18n.Notice{i18n.NewNotice(i18n.CarryOverTargetYear,
			strconv.Itoa(req.FromYear), strconv.Itoa(toYear))}
		return calc
	}

	rule := policy.resolve(SelectCarryOverRule(rules, req.LeaveType))
	if rule == nil {
		calc.Reason = &NoRuleError{Source: req.LeaveType}
		calc.Notices = []i18n.Notice{i18n.NewNotice(i18n.CarryOverNoRule)}
		return calc
	}
	calc.AppliedRule = rule
	calc.RequiresApproval = rule.RequiresApproval

	remaining := b.Remaining(req.LeaveType)
	if !remaining.IsPositive() {
		calc.Reason = ErrNothingToCarryOver
		calc.Notices = []i18n.Notice{i18n.NewNotice(i18n.CarryOverNothingRemaining)}
		return calc
	}
	calc.OriginalRemaining = remaining

	eligible := EligibleAmount(*rule, remaining, policy.Rounding)
	amount := eligible
	if req.Amount.IsPositive() && req.Amount.LessThan(eligible) {
		amount = req.Amount
	}
	calc.EligibleForCarryOver = eligible
	calc.CarryOverAmount = amount

	calc.Expires = rule.Expires()
	if policy.ExpiryFromNow {
		calc.ExpiryDate = rule.expiryFrom(now, toYear)
	} else {
		calc.ExpiryDate = rule.ExpiryDate(toYear)
	}
	expiry := calc.ExpiryDate.Format(generic.DateLayout)

	if policy.Legacy {
		calc.Notices = []i18n.Notice{i18n.NewNotice(i18n.CarryOverLegacySummary,
			amount.String(), label, strconv.Itoa(req.FromYear), strconv.Itoa(toYear), calc.ExpiryDate.Format(LegacyDateLayout))}
	} else {
		calc.Notices = []i18n.Notice{i18n.NewNotice(i18n.CarryOverCanCarry, amount.String(), label, strconv.Itoa(toYear))}
		if calc.Expires {
			calc.Notices = append(calc.Notices, i18n.NewNotice(i18n.CarryOverExpiresOn, expiry))
		}
	}
	if !amount.IsPositive() {
		calc.Reason = ErrNothingToCarryOver
	}
	return calc
}

// CarryOverAllowed reports whether leave type t can be carried over at all.
func CarryOverAllowed(b LeaveBalance, rules []CarryOverRule, t LeaveType) (bool, i18n.Notice) {
	if SelectCarryOverRule(rules, t) == nil {
		return false, i18n.NewNotice(i18n.CarryOverNoRuleFor, i18n.Label(i18n.LabelKey(string(t))))
	}
	if !b.Remaining(t).IsPositive() {
		return false, i18n.NewNotice(i18n.CarryOverNothingRemaining)
	}
	return true, i18n.Notice{}
}

// EligibleCarryOverTypes lists leave types with an active rule and days left.
func EligibleCarryOverTypes(b LeaveBalance, rules []CarryOverRule) []LeaveType {
	var out []LeaveType
	for _, t := range allLeaveTypes {
		if ok, _ := CarryOverAllowed(b, rules, t); ok {
			out = append(out, t)
		}
	}
	return out
}
