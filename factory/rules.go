/*
Package factory provides JSON to Go rule conversion.

PURPOSE:
  Converts JSON rule definitions into quota.TransferRule, quota.CarryOverRule
  and quota.SpecialPeriodRule values. HR can define a rule set in a file
  (QUOTA_RULES_FILE) or through the REST API, and the factory creates the
  validated Go structs. The same JSON types are the wire format of the
  rule endpoints.

JSON SCHEMA:
  {
    "transferRules": [
      {
        "id": "annual-to-rtt",
        "fromType": "ANNUAL",
        "toType": "RECOVERY",
        "conversionRate": 1,
        "maxTransferDays": 5,
        "requiresApproval": true,
        "ruleType": "STANDARD",
        "isActive": true
      }
    ],
    "carryOverRules": [
      {
        "id": "annual-carry",
        "leaveType": "ANNUAL",
        "ruleType": "PERCENTAGE",
        "value": 50,
        "maxCarryOverDays": 10,
        "expiryMonths": 3,
        "isActive": true
      }
    ],
    "specialPeriods": [
      {
        "name": "Été",
        "periodType": "SUMMER",
        "startDay": 1, "startMonth": 7, "endDay": 31, "endMonth": 8,
        "minimumQuotaGuaranteed": 10,
        "isActive": true
      }
    ]
  }

KEY FEATURES:
  - Validates every rule (quota.ErrInvalidRule on failure)
  - Leave type codes are case-insensitive, "RTT" aliases RECOVERY
  - Dates are YYYY-MM-DD
  - File order is kept: first match wins downstream

USAGE:
  set, err := factory.LoadRuleSet("rules.json")
  transfers, carryOvers, periods, err := set.Rules()

SEE ALSO:
  - quota/transfer.go, quota/carryover.go, quota/special.go: Rule types
  - presets.go: Built-in rule sets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is a file of rules, applied in order.
type RuleSetJSON struct {
	TransferRules  []TransferRuleJSON  `json:"transferRules,omitempty"`
	CarryOverRules []CarryOverRuleJSON `json:"carryOverRules,omitempty"`
	SpecialPeriods []SpecialPeriodJSON `json:"specialPeriods,omitempty"`
}

// TransferRuleJSON is the JSON representation of a transfer rule.
type TransferRuleJSON struct {
	ID                    string       `json:"id,omitempty"`
	FromType              string       `json:"fromType"`
	ToType                string       `json:"toType"`
	ConversionRate        float64      `json:"conversionRate,omitempty"` // 0 = 1
	MaxTransferDays       float64      `json:"maxTransferDays,omitempty"`
	MaxTransferPercentage float64      `json:"maxTransferPercentage,omitempty"`
	RequiresApproval      bool         `json:"requiresApproval"`
	RuleType              string       `json:"ruleType,omitempty"`
	IsActive              bool         `json:"isActive"`
	StartDate             string       `json:"startDate,omitempty"`
	EndDate               string       `json:"endDate,omitempty"`
	SeasonalPeriods       []WindowJSON `json:"seasonalPeriods,omitempty"`
	Description           string       `json:"description,omitempty"`
	DepartmentID          string       `json:"departmentId,omitempty"`
	ApplicableUserRoles   []string     `json:"applicableUserRoles,omitempty"`
	CreatedAt             string       `json:"createdAt,omitempty"`
	UpdatedAt             string       `json:"updatedAt,omitempty"`
}

// CarryOverRuleJSON is the JSON representation of a carry-over rule.
type CarryOverRuleJSON struct {
	ID               string  `json:"id,omitempty"`
	LeaveType        string  `json:"leaveType"`
	RuleType         string  `json:"ruleType"`
	Value            float64 `json:"value"`
	MaxCarryOverDays float64 `json:"maxCarryOverDays,omitempty"`
	ExpiryMonths     int     `json:"expiryMonths,omitempty"`
	ExpirationDays   int     `json:"expirationDays,omitempty"`
	RequiresApproval bool    `json:"requiresApproval"`
	IsActive         bool    `json:"isActive"`
	Description      string  `json:"description,omitempty"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	UpdatedAt        string  `json:"updatedAt,omitempty"`
}

// SpecialPeriodJSON is the JSON representation of a special period.
type SpecialPeriodJSON struct {
	ID                     string   `json:"id,omitempty"`
	Name                   string   `json:"name"`
	Description            string   `json:"description,omitempty"`
	PeriodType             string   `json:"periodType"`
	StartDay               int      `json:"startDay"`
	StartMonth             int      `json:"startMonth"`
	EndDay                 int      `json:"endDay"`
	EndMonth               int      `json:"endMonth"`
	SpecificYear           int      `json:"specificYear,omitempty"`
	MinimumQuotaGuaranteed float64  `json:"minimumQuotaGuaranteed,omitempty"`
	PriorityRules          []string `json:"priorityRules,omitempty"`
	IsActive               bool     `json:"isActive"`
	CreatedAt              string   `json:"createdAt,omitempty"`
	UpdatedAt              string   `json:"updatedAt,omitempty"`
}

// WindowJSON is a day/month window.
type WindowJSON struct {
	StartDay     int `json:"startDay"`
	StartMonth   int `json:"startMonth"`
	EndDay       int `json:"endDay"`
	EndMonth     int `json:"endMonth"`
	SpecificYear int `json:"specificYear,omitempty"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadRuleSet reads and parses a rule-set file.
func LoadRuleSet(path string) (RuleSetJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSetJSON{}, fmt.Errorf("failed to read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet parses a rule-set document. Unknown fields are rejected.
func ParseRuleSet(data []byte) (RuleSetJSON, error) {
	var set RuleSetJSON
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&set); err != nil {
		return RuleSetJSON{}, fmt.Errorf("%w: failed to parse rule set JSON: %v", generic.ErrInvalidInput, err)
	}
	return set, nil
}

// Rules converts and validates every rule of the set, in file order.
func (s RuleSetJSON) Rules() ([]quota.TransferRule, []quota.CarryOverRule, []quota.SpecialPeriodRule, error) {
	var (
		transfers  []quota.TransferRule
		carryOvers []quota.CarryOverRule
		periods    []quota.SpecialPeriodRule
	)
	for i, rj := range s.TransferRules {
		r, err := rj.ToRule()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("transferRules[%d]: %w", i, err)
		}
		transfers = append(transfers, r)
	}
	for i, rj := range s.CarryOverRules {
		r, err := rj.ToRule()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("carryOverRules[%d]: %w", i, err)
		}
		carryOvers = append(carryOvers, r)
	}
	for i, pj := range s.SpecialPeriods {
		p, err := pj.ToRule()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("specialPeriods[%d]: %w", i, err)
		}
		periods = append(periods, p)
	}
	return transfers, carryOvers, periods, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// ToRule converts and validates a transfer rule.
func (rj TransferRuleJSON) ToRule() (quota.TransferRule, error) {
	source, err := quota.ParseLeaveType(rj.FromType)
	if err != nil {
		return quota.TransferRule{}, err
	}
	target, err := quota.ParseLeaveType(rj.ToType)
	if err != nil {
		return quota.TransferRule{}, err
	}
	start, err := ParseDate(rj.StartDate)
	if err != nil {
		return quota.TransferRule{}, err
	}
	end, err := ParseDate(rj.EndDate)
	if err != nil {
		return quota.TransferRule{}, err
	}
	ruleType := quota.TransferRuleType(strings.ToUpper(rj.RuleType))
	if ruleType == "" {
		ruleType = quota.TransferStandard
	}

	r := quota.TransferRule{
		ID:                    rj.ID,
		SourceType:            source,
		TargetType:            target,
		Ratio:                 decimal.NewFromFloat(rj.ConversionRate),
		MaxTransferDays:       generic.Days(rj.MaxTransferDays),
		MaxTransferPercentage: decimal.NewFromFloat(rj.MaxTransferPercentage),
		RequiresApproval:      rj.RequiresApproval,
		RuleType:              ruleType,
		Active:                rj.IsActive,
		StartDate:             start,
		EndDate:               end,
		Description:           rj.Description,
		Department:            rj.DepartmentID,
		ApplicableRoles:       rj.ApplicableUserRoles,
		CreatedAt:             parseTimestamp(rj.CreatedAt),
		UpdatedAt:             parseTimestamp(rj.UpdatedAt),
	}
	for _, w := range rj.SeasonalPeriods {
		r.SeasonalPeriods = append(r.SeasonalPeriods, w.ToWindow())
	}
	if err := r.Validate(); err != nil {
		return quota.TransferRule{}, err
	}
	return r, nil
}

// TransferRuleToJSON converts a transfer rule to its JSON representation.
func TransferRuleToJSON(r quota.TransferRule) TransferRuleJSON {
	rj := TransferRuleJSON{
		ID:                    r.ID,
		FromType:              string(r.SourceType),
		ToType:                string(r.TargetType),
		ConversionRate:        r.EffectiveRatio().InexactFloat64(),
		MaxTransferDays:       r.MaxTransferDays.Float64(),
		MaxTransferPercentage: r.MaxTransferPercentage.InexactFloat64(),
		RequiresApproval:      r.RequiresApproval,
		RuleType:              string(r.RuleType),
		IsActive:              r.Active,
		StartDate:             FormatDate(r.StartDate),
		EndDate:               FormatDate(r.EndDate),
		Description:           r.Description,
		DepartmentID:          r.Department,
		ApplicableUserRoles:   r.ApplicableRoles,
		CreatedAt:             formatTimestamp(r.CreatedAt),
		UpdatedAt:             formatTimestamp(r.UpdatedAt),
	}
	for _, w := range r.SeasonalPeriods {
		rj.SeasonalPeriods = append(rj.SeasonalPeriods, WindowToJSON(w))
	}
	return rj
}

// ToRule converts and validates a carry-over rule.
func (rj CarryOverRuleJSON) ToRule() (quota.CarryOverRule, error) {
	t, err := quota.ParseLeaveType(rj.LeaveType)
	if err != nil {
		return quota.CarryOverRule{}, err
	}
	r := quota.CarryOverRule{
		ID:               rj.ID,
		LeaveType:        t,
		RuleType:         quota.CarryOverRuleType(strings.ToUpper(rj.RuleType)),
		Value:            decimal.NewFromFloat(rj.Value),
		MaxCarryOverDays: generic.Days(rj.MaxCarryOverDays),
		ExpiryMonths:     rj.ExpiryMonths,
		ExpirationDays:   rj.ExpirationDays,
		RequiresApproval: rj.RequiresApproval,
		Active:           rj.IsActive,
		Description:      rj.Description,
		CreatedAt:        parseTimestamp(rj.CreatedAt),
		UpdatedAt:        parseTimestamp(rj.UpdatedAt),
	}
	if err := r.Validate(); err != nil {
		return quota.CarryOverRule{}, err
	}
	return r, nil
}

// CarryOverRuleToJSON converts a carry-over rule to its JSON representation.
func CarryOverRuleToJSON(r quota.CarryOverRule) CarryOverRuleJSON {
	return CarryOverRuleJSON{
		ID:               r.ID,
		LeaveType:        string(r.LeaveType),
		RuleType:         string(r.RuleType),
		Value:            r.Value.InexactFloat64(),
		MaxCarryOverDays: r.MaxCarryOverDays.Float64(),
		ExpiryMonths:     r.ExpiryMonths,
		ExpirationDays:   r.ExpirationDays,
		RequiresApproval: r.RequiresApproval,
		IsActive:         r.Active,
		Description:      r.Description,
		CreatedAt:        formatTimestamp(r.CreatedAt),
		UpdatedAt:        formatTimestamp(r.UpdatedAt),
	}
}

// ToRule converts and validates a special period.
func (pj SpecialPeriodJSON) ToRule() (quota.SpecialPeriodRule, error) {
	periodType := quota.SpecialPeriodType(strings.ToUpper(pj.PeriodType))
	if periodType == "" {
		periodType = quota.PeriodOther
	}
	p := quota.SpecialPeriodRule{
		ID:          pj.ID,
		Name:        pj.Name,
		Description: pj.Description,
		PeriodType:  periodType,
		Window: quota.Window{
			StartDay: pj.StartDay, StartMonth: pj.StartMonth,
			EndDay: pj.EndDay, EndMonth: pj.EndMonth,
			SpecificYear: pj.SpecificYear,
		},
		MinimumQuotaGuaranteed: generic.Days(pj.MinimumQuotaGuaranteed),
		PriorityRules:          pj.PriorityRules,
		Active:                 pj.IsActive,
		CreatedAt:              parseTimestamp(pj.CreatedAt),
		UpdatedAt:              parseTimestamp(pj.UpdatedAt),
	}
	if err := p.Validate(); err != nil {
		return quota.SpecialPeriodRule{}, err
	}
	return p, nil
}

// SpecialPeriodToJSON converts a special period to its JSON representation.
func SpecialPeriodToJSON(p quota.SpecialPeriodRule) SpecialPeriodJSON {
	return SpecialPeriodJSON{
		ID:                     p.ID,
		Name:                   p.Name,
		Description:            p.Description,
		PeriodType:             string(p.PeriodType),
		StartDay:               p.Window.StartDay,
		StartMonth:             p.Window.StartMonth,
		EndDay:                 p.Window.EndDay,
		EndMonth:               p.Window.EndMonth,
		SpecificYear:           p.Window.SpecificYear,
		MinimumQuotaGuaranteed: p.MinimumQuotaGuaranteed.Float64(),
		PriorityRules:          p.PriorityRules,
		IsActive:               p.Active,
		CreatedAt:              formatTimestamp(p.CreatedAt),
		UpdatedAt:              formatTimestamp(p.UpdatedAt),
	}
}

// ToWindow converts a JSON window.
func (w WindowJSON) ToWindow() quota.Window {
	return quota.Window{
		StartDay: w.StartDay, StartMonth: w.StartMonth,
		EndDay: w.EndDay, EndMonth: w.EndMonth,
		SpecificYear: w.SpecificYear,
	}
}

// WindowToJSON converts a window.
func WindowToJSON(w quota.Window) WindowJSON {
	return WindowJSON{
		StartDay: w.StartDay, StartMonth: w.StartMonth,
		EndDay: w.EndDay, EndMonth: w.EndMonth,
		SpecificYear: w.SpecificYear,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// ParseDate parses a YYYY-MM-DD date; empty is the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(generic.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (use YYYY-MM-DD)", generic.ErrInvalidInput, s)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD; the zero time is empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(generic.DateLayout)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
