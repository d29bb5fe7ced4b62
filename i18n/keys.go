package i18n

// Message arguments are always strings. Printers apply locale number
// grouping to numeric arguments, which would mangle years and amounts.

// Leave type labels, keyed by leave type code.
const (
	LabelAnnual    = "leave.label.ANNUAL"
	LabelRecovery  = "leave.label.RECOVERY"
	LabelTraining  = "leave.label.TRAINING"
	LabelSick      = "leave.label.SICK"
	LabelMaternity = "leave.label.MATERNITY"
	LabelSpecial   = "leave.label.SPECIAL"
	LabelUnpaid    = "leave.label.UNPAID"
	LabelOther     = "leave.label.OTHER"
)

// LabelKey returns the label key for a leave type code.
func LabelKey(code string) string { return "leave.label." + code }

// Transfer messages.
const (
	// args: remaining, source label
	TransferInsufficient = "quota.transfer.insufficient"
	// args: remaining
	TransferInsufficientLegacy = "quota.transfer.insufficient_legacy"
	// args: source label, target label
	TransferNoRule = "quota.transfer.no_rule"
	// args: amount, source label, target amount, target label
	TransferConverts = "quota.transfer.converts"
	// args: rule description, ratio
	TransferRuleApplied = "quota.transfer.rule_applied"
	// args: amount, source label, target label, ratio
	TransferLegacySummary = "quota.transfer.legacy_summary"
	// args: source label
	TransferNothingAvailable = "quota.transfer.nothing_available"
	// args: target amount, cap
	TransferCapped = "quota.transfer.capped"
	// args: none
	TransferRequiresApproval = "quota.transfer.requires_approval"
	// args: none
	TransferStandardRule = "quota.transfer.standard_rule"
	// args: minimum
	TransferInvalidAmount = "quota.transfer.invalid_amount"
)

// Carry-over messages.
const (
	// args: none
	CarryOverNoRule = "quota.carryover.no_rule"
	// args: leave type label
	CarryOverNoRuleFor = "quota.carryover.no_rule_for"
	// args: none
	CarryOverNothingRemaining = "quota.carryover.nothing_remaining"
	// args: amount, label, to year
	CarryOverCanCarry = "quota.carryover.can_carry"
	// args: expiry date
	CarryOverExpiresOn = "quota.carryover.expires_on"
	// args: amount, label, from year, to year, expiry date
	CarryOverLegacySummary = "quota.carryover.legacy_summary"
	// args: none
	CarryOverNothingToCarry = "quota.carryover.nothing_to_carry"
	// args: from year, to year
	CarryOverTargetYear = "quota.carryover.target_year"
)

// Availability and alert messages.
const (
	// args: requested, label, remaining after
	AvailabilityOK = "quota.availability.ok"
	// args: requested, label, exceeded by
	AvailabilityExceeded = "quota.availability.exceeded"
	// args: amount, label, expiry date
	AlertExpiring = "quota.alert.expiring"
)

// Error wrappers for backend failures. args: underlying message
const (
	ErrFetchBalance        = "quota.error.fetch_balance"
	ErrFetchTransferRules  = "quota.error.fetch_transfer_rules"
	ErrFetchCarryOverRules = "quota.error.fetch_carry_over_rules"
	ErrTransfer            = "quota.error.transfer"
	ErrCarryOver           = "quota.error.carry_over"
	ErrFetchHistory        = "quota.error.fetch_history"
	ErrReport              = "quota.error.report"
	ErrSpecialPeriods      = "quota.error.special_periods"
	ErrProcessRequest      = "quota.error.process_request"
	ErrAdjust              = "quota.error.adjust"
)
