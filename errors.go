package membership

import (
	"errors"
	"fmt"

	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Domain errors. Every one aborts the transaction with no state change.
	ErrUnauthorized    = types.ErrUnauthorized
	ErrNotFound        = types.ErrNotFound
	ErrInactiveTier    = types.ErrInactiveTier
	ErrWrongPrice      = types.ErrWrongPrice
	ErrSupplyExhausted = types.ErrSupplyExhausted
	ErrInvalidInput    = types.ErrInvalidInput

	// Lookup errors. Both satisfy errors.Is(err, ErrNotFound).
	ErrTierNotFound  = tier.ErrNotFound
	ErrTokenNotFound = token.ErrNotFound

	// Engine errors
	ErrNotStarted     = errors.New("membership: engine not started")
	ErrConfigMismatch = errors.New("membership: configuration does not match stored state")

	// Store errors
	ErrStoreClosed       = errors.New("membership: store is closed")
	ErrTransactionFailed = errors.New("membership: transaction failed")
	ErrMigrationFailed   = errors.New("membership: migration failed")
	ErrStateCorrupt      = errors.New("membership: stored state is corrupt")
)

// ValidationError represents a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("membership: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets ValidationError match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthorization returns true if the caller lacked the required role.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsPaymentError returns true if the purchase or renewal was rejected
// because of the tier state or the amount paid.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrWrongPrice) ||
		errors.Is(err, ErrInactiveTier) ||
		errors.Is(err, ErrSupplyExhausted)
}

// IsRetryable returns true if resubmitting the same call may succeed.
// Domain rejections are never retryable; store failures may be.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) && !errors.Is(err, ErrStoreClosed)
}
