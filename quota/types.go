/*
Package quota implements the leave-quota rules on top of the generic engine.

PURPOSE:
  Pure calculation code for leave quotas: balances per leave type,
  transfer rule selection and ratio conversion, carry-over eligibility and
  expiry, special-period membership, quota state aggregation, transfer
  reports and availability checks. Nothing in this package performs I/O;
  package service fetches the inputs and package store/sqlite persists the
  results.

KEY CONCEPTS:
  - LeaveType: a quota bucket (ANNUAL, RECOVERY, ...), a generic.ResourceType
  - LeaveBalance: per user and year; remaining is always recomputed
  - TransferRule / CarryOverRule: first active match wins
  - SpecialPeriodRule: recurring or year-bound window, may span New Year

SEE ALSO:
  - transfer.go, carryover.go: rule evaluation
  - special.go: special-period membership
  - state.go, report.go: aggregation over fetched history
*/
package quota

import (
	"fmt"
	"strings"

	"golang.org/x/text/message"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType is a category of absence with its own quota bucket.
// Implements generic.ResourceType.
type LeaveType string

func (t LeaveType) ResourceID() string     { return string(t) }
func (t LeaveType) ResourceDomain() string { return "leave" }

var _ generic.ResourceType = LeaveType("")

const (
	LeaveAnnual    LeaveType = "ANNUAL"
	LeaveRecovery  LeaveType = "RECOVERY"
	LeaveTraining  LeaveType = "TRAINING"
	LeaveSick      LeaveType = "SICK"
	LeaveMaternity LeaveType = "MATERNITY"
	LeaveSpecial   LeaveType = "SPECIAL"
	LeaveUnpaid    LeaveType = "UNPAID"
	LeaveOther     LeaveType = "OTHER"
)

var allLeaveTypes = []LeaveType{
	LeaveAnnual, LeaveRecovery, LeaveTraining, LeaveSick,
	LeaveMaternity, LeaveSpecial, LeaveUnpaid, LeaveOther,
}

func init() {
	for _, t := range allLeaveTypes {
		generic.RegisterResource(t)
	}
}

// AllLeaveTypes returns every leave type in display order.
func AllLeaveTypes() []LeaveType {
	out := make([]LeaveType, len(allLeaveTypes))
	copy(out, allLeaveTypes)
	return out
}

// ParseLeaveType accepts a leave type code, case-insensitively.
// "RTT" is accepted as an alias of RECOVERY.
func ParseLeaveType(s string) (LeaveType, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "RTT" {
		return LeaveRecovery, nil
	}
	for _, t := range allLeaveTypes {
		if string(t) == code {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown leave type %q", generic.ErrInvalidInput, s)
}

// Label returns the localized display name.
func (t LeaveType) Label(p *message.Printer) string {
	if p == nil {
		p = i18n.DefaultPrinter()
	}
	key := i18n.LabelKey(string(t))
	label := p.Sprintf(key)
	if label == key {
		return string(t)
	}
	return label
}

// =============================================================================
// STATUSES AND TRANSACTION KINDS
// =============================================================================

// Status of a transfer or carry-over request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
	StatusCompleted Status = "COMPLETED"
)

// IsFinal reports whether the request can no longer be processed.
func (s Status) IsFinal() bool {
	return s != StatusPending
}

// ParseStatus accepts a status code, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusExpired, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", generic.ErrInvalidInput, s)
}

// TransferRuleType classifies transfer rules.
type TransferRuleType string

const (
	TransferStandard   TransferRuleType = "STANDARD"
	TransferSpecial    TransferRuleType = "SPECIAL"
	TransferRoleBased  TransferRuleType = "ROLE_BASED"
	TransferDepartment TransferRuleType = "DEPARTMENT"
	TransferSeasonal   TransferRuleType = "SEASONAL"
)

// CarryOverRuleType selects how eligible days are computed.
type CarryOverRuleType string

const (
	CarryOverPercentage CarryOverRuleType = "PERCENTAGE"
	CarryOverFixed      CarryOverRuleType = "FIXED"
	CarryOverMaxDays    CarryOverRuleType = "MAX_DAYS"
	CarryOverUnlimited  CarryOverRuleType = "UNLIMITED"
	CarryOverAll        CarryOverRuleType = "ALL"
	CarryOverExpirable  CarryOverRuleType = "EXPIRABLE"
)

// SpecialPeriodType classifies special periods.
type SpecialPeriodType string

const (
	PeriodSummer   SpecialPeriodType = "SUMMER"
	PeriodWinter   SpecialPeriodType = "WINTER"
	PeriodHolidays SpecialPeriodType = "HOLIDAYS"
	PeriodOther    SpecialPeriodType = "OTHER"
)

// Days is shorthand for an amount in days.
func Days(v float64) generic.Amount { return generic.Days(v) }

func zeroDays() generic.Amount { return generic.NewAmount(0, generic.UnitDays) }
