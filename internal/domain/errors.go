package domain

import (
	"fmt"
	"time"
)

// Machine-readable error codes surfaced at the API boundary.
const (
	CodeMissingFlight          = "MISSING_FLIGHT"
	CodeMissingPassengers      = "MISSING_PASSENGERS"
	CodeMissingContact         = "MISSING_CONTACT"
	CodeMissingPayment         = "MISSING_PAYMENT"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeInvalidReference       = "INVALID_REFERENCE"
	CodeEmailRequired          = "EMAIL_REQUIRED"
	CodeLastNameRequired       = "LASTNAME_REQUIRED"
	CodeBookingNotFound        = "BOOKING_NOT_FOUND"
	CodeCancellationNotAllowed = "CANCELLATION_NOT_ALLOWED"
	CodeVerificationFailed     = "VERIFICATION_FAILED"
	CodeRateLimited            = "RATE_LIMITED"
	CodeNotFound               = "NOT_FOUND"
)

// ValidationError is client-fixable input trouble; Field pins the offending
// sub-object.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// ConflictError is a business-rule refusal, e.g. cancelling a completed
// booking.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// VerificationError carries a deliberately generic outward message; the
// internal reason is for logs only and must never reach the client.
type VerificationError struct {
	InternalReason string
}

func (e *VerificationError) Error() string {
	return "verification failed"
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// UpstreamTimeoutError marks a store/transport deadline, retryable by the
// caller; distinct from business refusals so a timed-out cancel is not read
// as "not cancelled".
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// InvariantViolation is fatal/internal, e.g. a duplicate reference surviving
// the regeneration retry.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Message
}
