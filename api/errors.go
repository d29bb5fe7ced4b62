package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

// errorCodes maps wire codes to sentinels. Order is the order codes are
// emitted in, most specific first.
var errorCodes = []struct {
	code string
	err  error
}{
	{"INSUFFICIENT_BALANCE", generic.ErrInsufficientBalance},
	{"NO_APPLICABLE_RULE", quota.ErrNoApplicableRule},
	{"TRANSFER_REJECTED", quota.ErrTransferRejected},
	{"NOTHING_TO_CARRY_OVER", quota.ErrNothingToCarryOver},
	{"ALREADY_PROCESSED", quota.ErrAlreadyProcessed},
	{"INVALID_RULE", quota.ErrInvalidRule},
	{"RULE_NOT_FOUND", quota.ErrRuleNotFound},
	{"REQUEST_NOT_FOUND", quota.ErrRequestNotFound},
	{"ENTITY_NOT_FOUND", generic.ErrEntityNotFound},
	{"NOT_FOUND", generic.ErrNotFound},
	{"DUPLICATE_IDEMPOTENCY_KEY", generic.ErrDuplicateIdempotencyKey},
	{"INVALID_PERIOD", generic.ErrInvalidPeriod},
	{"INVALID_INPUT", generic.ErrInvalidInput},
}

// codesFor returns the code of every sentinel err wraps.
func codesFor(err error) []string {
	if err == nil {
		return nil
	}
	var codes []string
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			codes = append(codes, c.code)
		}
	}
	return codes
}

func sentinelsFor(codes []string) []error {
	var errs []error
	for _, code := range codes {
		for _, c := range errorCodes {
			if c.code == code {
				errs = append(errs, c.err)
			}
		}
	}
	return errs
}

// errorFromCodes rebuilds an error matching the sentinels named by codes.
// No codes means no error.
func errorFromCodes(codes []string, message string) error {
	errs := sentinelsFor(codes)
	if len(errs) == 0 {
		return nil
	}
	return &remoteError{message: message, errs: errs}
}

// remoteError is a failure decoded from the wire.
type remoteError struct {
	message string
	errs    []error
}

func (e *remoteError) Error() string   { return e.message }
func (e *remoteError) Unwrap() []error { return e.errs }

// statusFor picks the HTTP status of a failure.
func statusFor(err error) int {
	switch {
	case generic.IsInvalidInput(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, quota.ErrAlreadyProcessed), errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, quota.ErrTransferRejected),
		errors.Is(err, quota.ErrNothingToCarryOver),
		errors.Is(err, generic.ErrInsufficientBalance),
		errors.Is(err, quota.ErrNoApplicableRule):
		return http.StatusUnprocessableEntity
	case generic.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its status, its localized message when
// it has one, and its codes.
func writeServiceError(w http.ResponseWriter, fallback string, err error) {
	message := fallback
	var (
		svcErr    *service.Error
		rejection *quota.RejectionError
	)
	switch {
	case errors.As(err, &rejection):
		message = rejection.Message
	case errors.As(err, &svcErr):
		message = svcErr.Message
	}
	writeJSON(w, statusFor(err), ErrorResponse{
		Error:   message,
		Details: err.Error(),
		Codes:   codesFor(err),
	})
}

// =============================================================================
// CLIENT ERRORS
// =============================================================================

// HTTPError is a non-2xx response seen by Client. It unwraps to the
// sentinels named by the response codes, or to one chosen by status.
type HTTPError struct {
	StatusCode int
	Message    string
	Details    string
	Codes      []string
}

func (e *HTTPError) Error() string {
	if e.Details != "" && e.Details != e.Message {
		return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() []error {
	if errs := sentinelsFor(e.Codes); len(errs) > 0 {
		return errs
	}
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return []error{generic.ErrInvalidInput}
	case e.StatusCode == http.StatusNotFound:
		return []error{generic.ErrNotFound}
	case e.StatusCode == http.StatusConflict:
		return []error{quota.ErrAlreadyProcessed}
	case e.StatusCode >= http.StatusInternalServerError:
		return []error{generic.ErrUnavailable}
	}
	return nil
}
