package membership

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		auth      bool
		payment   bool
		retryable bool
	}{
		{"tier not found", ErrTierNotFound, true, false, false, false},
		{"token not found wrapped", fmt.Errorf("renew: %w", ErrTokenNotFound), true, false, false, false},
		{"unauthorized", ErrUnauthorized, false, true, false, false},
		{"wrong price", ErrWrongPrice, false, false, true, false},
		{"inactive tier", ErrInactiveTier, false, false, true, false},
		{"supply exhausted", ErrSupplyExhausted, false, false, true, false},
		{"commit failed", fmt.Errorf("%w: disk full", ErrTransactionFailed), false, false, false, true},
		{"store closed", fmt.Errorf("%w: %w", ErrTransactionFailed, ErrStoreClosed), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v", got)
			}
			if got := IsAuthorization(tt.err); got != tt.auth {
				t.Errorf("IsAuthorization = %v", got)
			}
			if got := IsPaymentError(tt.err); got != tt.payment {
				t.Errorf("IsPaymentError = %v", got)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v", got)
			}
		})
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	err := ValidationError{Field: "max_supply", Message: "must be positive"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if err.Error() != "membership: validation failed for max_supply: must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
}
