/*
errors.go - Centralized error types for the quota engine

PURPOSE:
  All engine-level error types in one place for consistency and
  discoverability. The quota package and the HTTP client wrap these
  errors with additional context, so callers classify failures with
  errors.Is / errors.As instead of inspecting messages.

ERROR CATEGORIES:
  1. Ledger errors - Transaction persistence failures
  2. Validation errors - Business rule violations
  3. Lookup errors - Missing rules, requests or employees

USAGE:
    if errors.Is(err, generic.ErrInsufficientBalance) {
        // show the shortfall to the user
    }

SEE ALSO:
  - ledger.go: Uses these errors
  - quota/errors.go: Quota-specific sentinels and structured errors
  - api/client.go: Maps HTTP status codes back onto these sentinels
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrTransactionFailed is returned when a transaction cannot be persisted.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInsufficientBalance is returned when a debit exceeds the remaining balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConcurrentModification is returned when a conflicting write is detected.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrEntityNotFound is returned when a referenced employee doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("backend unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EntityID     EntityID
	ResourceType ResourceType
	Available    Amount
	Requested    Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %v, requested %v, shortfall %v",
		e.Available.Value, e.Requested.Value, e.Shortfall().Value)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Shortfall is how much the request exceeds the available amount.
func (e *InsufficientBalanceError) Shortfall() Amount {
	return e.Requested.Sub(e.Available).ClampZero()
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrUnavailable)
}

// IsInvalidInput returns true if the request itself is malformed.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidPeriod)
}

// IsClientError returns true if the error is due to the caller: malformed
// input, a balance too small for the request, or a replayed key.
func IsClientError(err error) bool {
	return IsInvalidInput(err) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEntityNotFound)
}
