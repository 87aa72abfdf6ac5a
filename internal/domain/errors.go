package domain

import (
	"fmt"
	"time"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError represents a missing or malformed input field. It is
// user-facing and recoverable by re-prompting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// MismatchError is returned for a wrong OTP code. AttemptsRemaining drives the
// "N attempts remaining" user message without leaking the code itself.
type MismatchError struct {
	AttemptsRemaining int
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("code mismatch, %d attempts remaining", e.AttemptsRemaining)
}

func (e MismatchError) Is(target error) bool {
	_, ok := target.(MismatchError)
	if ok {
		return true
	}
	_, ok = target.(*MismatchError)
	return ok
}

var ErrOtpMismatch = MismatchError{}

// TooSoonError is returned when a resend is requested before the cooldown has
// elapsed.
type TooSoonError struct {
	RetryAfter time.Duration
}

func (e TooSoonError) Error() string {
	return fmt.Sprintf("resend not allowed yet, retry after %s", e.RetryAfter)
}

func (e TooSoonError) Is(target error) bool {
	_, ok := target.(TooSoonError)
	if ok {
		return true
	}
	_, ok = target.(*TooSoonError)
	return ok
}

var ErrOtpTooSoon = TooSoonError{}

// PersistenceError wraps a store failure. Surfaced to callers as retryable;
// the cause is logged server-side, never shown to end users.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e PersistenceError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("persistence failure during %s", e.Op)
	}
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Cause)
}

func (e PersistenceError) Unwrap() error { return e.Cause }

func (e PersistenceError) Is(target error) bool {
	_, ok := target.(PersistenceError)
	if ok {
		return true
	}
	_, ok = target.(*PersistenceError)
	return ok
}

var ErrPersistence = PersistenceError{}

// Sentinel errors for the OTP and issuance state machines.
var (
	// ErrDuplicateKey is returned by repositories when a write hits a unique
	// constraint. The registry uses it to detect ID collisions and concurrent
	// duplicate issuance without overwriting.
	ErrDuplicateKey = fmt.Errorf("duplicate key")

	ErrOtpExpired           = fmt.Errorf("code expired")
	ErrOtpConsumed          = fmt.Errorf("code already used")
	ErrOtpAttemptsExhausted = fmt.Errorf("attempts exhausted")
	ErrNoActiveSession      = fmt.Errorf("no active verification session")

	// ErrNotVerified marks an attempt to mint a certificate from an unverified
	// submission. Integration bug, never user-reachable.
	ErrNotVerified = fmt.Errorf("submission is not verified")

	// ErrProofRequired marks a gated lookup attempted without a fresh proof of
	// contact control.
	ErrProofRequired = fmt.Errorf("verification proof required")

	// ErrInvalidTransition marks a flow operation not valid in the current state.
	ErrInvalidTransition = fmt.Errorf("operation not valid in current state")

	// ErrOathNotAcknowledged marks consent attempted before the oath text was
	// acknowledged.
	ErrOathNotAcknowledged = fmt.Errorf("oath must be acknowledged before agreeing")
)
