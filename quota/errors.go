package quota

import (
	"errors"
	"fmt"

	"github.com/warp/leave-quota/generic"
)

var (
	// ErrNoApplicableRule is returned when no active rule governs a
	// transfer pair or a carry-over leave type.
	ErrNoApplicableRule = errors.New("no applicable rule")

	// ErrTransferRejected is returned by execute paths when the simulation
	// of a transfer is invalid.
	ErrTransferRejected = errors.New("transfer rejected")

	// ErrNothingToCarryOver is returned by execute paths when the carry-over
	// amount is zero.
	ErrNothingToCarryOver = errors.New("nothing to carry over")

	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = fmt.Errorf("rule %w", generic.ErrNotFound)

	// ErrRequestNotFound is returned when a transfer or carry-over request ID does not exist.
	ErrRequestNotFound = fmt.Errorf("request %w", generic.ErrNotFound)

	// ErrAlreadyProcessed is returned when approving or rejecting a request
	// that is no longer pending.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrInvalidRule is returned when a rule definition is malformed.
	ErrInvalidRule = fmt.Errorf("%w: rule", generic.ErrInvalidInput)

	// ErrCarryOverClosed is returned when a carry-over is submitted after
	// the deadline of its source year.
	ErrCarryOverClosed = fmt.Errorf("carry-over deadline passed: %w", generic.ErrInvalidPeriod)
)

// NoRuleError names the pair or leave type with no active rule.
type NoRuleError struct {
	Source LeaveType
	Target LeaveType // empty for carry-over rules
}

func (e *NoRuleError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("no active carry-over rule for %s", e.Source)
	}
	return fmt.Sprintf("no active transfer rule for %s to %s", e.Source, e.Target)
}

func (e *NoRuleError) Unwrap() error { return ErrNoApplicableRule }

// RejectionError carries the localized reason of a rejected execute call.
type RejectionError struct {
	Cause   error
	Message string
}

func (e *RejectionError) Error() string { return e.Message }
func (e *RejectionError) Unwrap() error { return e.Cause }

// invalidRule wraps a validation problem with ErrInvalidRule.
func invalidRule(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
}
