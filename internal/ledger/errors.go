package ledger

import "errors"

// Expected, user-facing outcomes. Handlers map these to HTTP statuses;
// anything else is an internal failure.
var (
	// ErrInvalidInput indicates a malformed code, password, or parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuota indicates a non-positive quota on issuance or adjustment.
	ErrInvalidQuota = errors.New("quota must be positive")
	// ErrNotFound indicates no ledger record exists for the code.
	ErrNotFound = errors.New("access code not found")
	// ErrUnauthorized indicates a password mismatch.
	ErrUnauthorized = errors.New("password mismatch")
	// ErrExpired indicates the code exists but is past its expiry.
	ErrExpired = errors.New("access code expired")
	// ErrQuotaExhausted indicates no remaining balance.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrContention indicates the compare-and-swap retry budget ran out.
	ErrContention = errors.New("too much contention, retry")
	// ErrGenerationExhausted indicates issuance found no free code within its
	// attempt budget.
	ErrGenerationExhausted = errors.New("could not generate a unique code")
	// ErrPaymentNotCompleted indicates the payment gateway did not report a
	// completed capture.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)
