package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, LabelAnnual, "Annual leave")
	message.SetString(lang, LabelRecovery, "Recovery (RTT)")
	message.SetString(lang, LabelTraining, "Training")
	message.SetString(lang, LabelSick, "Sick leave")
	message.SetString(lang, LabelMaternity, "Maternity")
	message.SetString(lang, LabelSpecial, "Special leave")
	message.SetString(lang, LabelUnpaid, "Unpaid")
	message.SetString(lang, LabelOther, "Other")

	message.SetString(lang, TransferInsufficient, "Insufficient quota. You have %s days of %s left.")
	message.SetString(lang, TransferInsufficientLegacy, "Insufficient amount. %s days remain available for the source type.")
	message.SetString(lang, TransferNoRule, "No transfer rule is available from %s to %s")
	message.SetString(lang, TransferConverts, "This transfer converts %s day(s) of %s into %s day(s) of %s.")
	message.SetString(lang, TransferRuleApplied, "Applied rule: %s (ratio: %s)")
	message.SetString(lang, TransferLegacySummary, "Transfer of %s days from %s to %s at a ratio of %s.")
	message.SetString(lang, TransferNothingAvailable, "No days available to transfer from %s")
	message.SetString(lang, TransferCapped, "Target amount capped at %s day(s) (limit: %s).")
	message.SetString(lang, TransferRequiresApproval, "This transfer requires approval.")
	message.SetString(lang, TransferStandardRule, "Standard transfer")
	message.SetString(lang, TransferInvalidAmount, "The number of days must be at least %s")

	message.SetString(lang, CarryOverNoRule, "No carry-over rule applies to this leave type.")
	message.SetString(lang, CarryOverNoRuleFor, "No carry-over rule is available for %s")
	message.SetString(lang, CarryOverNothingRemaining, "You have no remaining days to carry over.")
	message.SetString(lang, CarryOverCanCarry, "You can carry %s day(s) of %s over to %s.")
	message.SetString(lang, CarryOverExpiresOn, "These days expire on %s.")
	message.SetString(lang, CarryOverLegacySummary, "Carry-over of %s days of %s from %s to %s. Expires on %s.")
	message.SetString(lang, CarryOverNothingToCarry, "No days to carry over.")
	message.SetString(lang, CarryOverTargetYear, "Days from %s can only be carried into a later year, not %s.")

	message.SetString(lang, AvailabilityOK, "%s day(s) of %s available. %s day(s) will remain.")
	message.SetString(lang, AvailabilityExceeded, "The request for %s day(s) of %s exceeds the quota by %s day(s).")
	message.SetString(lang, AlertExpiring, "%s days of %s expire on %s")

	message.SetString(lang, ErrFetchBalance, "failed to fetch balance: %s")
	message.SetString(lang, ErrFetchTransferRules, "failed to fetch transfer rules: %s")
	message.SetString(lang, ErrFetchCarryOverRules, "failed to fetch carry-over rules: %s")
	message.SetString(lang, ErrTransfer, "quota transfer failed: %s")
	message.SetString(lang, ErrCarryOver, "quota carry-over failed: %s")
	message.SetString(lang, ErrFetchHistory, "failed to fetch history: %s")
	message.SetString(lang, ErrReport, "failed to generate transfer report: %s")
	message.SetString(lang, ErrSpecialPeriods, "failed to fetch special periods: %s")
	message.SetString(lang, ErrProcessRequest, "failed to process request: %s")
	message.SetString(lang, ErrAdjust, "failed to adjust quota: %s")
}
