// Package types provides common types used across Membership.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultCurrency is the denomination used when none is configured.
const DefaultCurrency = "wei"

// MaxAmount is the largest representable amount.
const MaxAmount uint64 = math.MaxUint64

// ErrOverflow is returned when an addition exceeds the unsigned range.
var ErrOverflow = errors.New("money: amount overflow")

// Money is an amount in the smallest unit of a denomination.
// Amounts are unsigned and integer-only; prices are matched exactly.
// The ceiling is MaxAmount (2^64-1): about 18.44 ETH when counted in wei.
// Larger amounts are rejected with ErrInvalidInput, never truncated.
//
// Examples:
//   - Wei(10000000000000000) = 0.01 ETH expressed in wei
//   - Units(4900, "usd")     = 4900 cents
type Money struct {
	Amount   uint64 `json:"amount"`   // Smallest unit (wei, cents, ...)
	Currency string `json:"currency"` // Lowercase code: "wei", "usd"
}

// Units creates a Money value in the given denomination.
func Units(amount uint64, currency string) Money {
	return Money{Amount: amount, Currency: normalizeCurrency(currency)}
}

// Wei creates a Money value denominated in wei.
func Wei(amount uint64) Money { return Money{Amount: amount, Currency: DefaultCurrency} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Currency: normalizeCurrency(currency)} }

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// Equal reports whether both values carry the same amount and currency.
// It is the only comparison used for price checks: there is no tolerance.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Add returns m + other. Currencies must match and the sum must fit in 64 bits.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: currency mismatch: %s != %s", m.Currency, other.Currency)
	}
	if other.Amount > math.MaxUint64-m.Amount {
		return Money{}, ErrOverflow
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// FormatMajor returns the amount in major units without a symbol.
// For "usd" 4900 becomes "49.00"; for "eth" 1e16 becomes "0.010000000000000000".
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatUint(m.Amount, 10)
	}

	divisor := uint64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	major := m.Amount / divisor
	minor := m.Amount % divisor
	return fmt.Sprintf("%d.%0*d", major, decimals, minor)
}

// String returns a human-readable form, e.g. "10000 wei" or "$49.00".
func (m Money) String() string {
	if sym, ok := currencySymbol(m.Currency); ok {
		return sym + m.FormatMajor()
	}
	return m.FormatMajor() + " " + m.Currency
}

// MarshalJSON implements json.Marshaler. The amount is encoded as a decimal
// string so that values above 2^53 survive JavaScript clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   strconv.FormatUint(m.Amount, 10),
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The amount may be a JSON number
// or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	amount, err := ParseAmount(strings.Trim(string(raw.Amount), `"`))
	if err != nil {
		return err
	}

	m.Amount = amount
	m.Currency = normalizeCurrency(raw.Currency)
	return nil
}

// ParseAmount parses an unsigned decimal amount. Every failure matches
// ErrInvalidInput.
func ParseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: money: empty amount", ErrInvalidInput)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Errorf("%w: money: amount %s out of range: exceeds maximum %d", ErrInvalidInput, s, MaxAmount)
	case err != nil:
		return 0, fmt.Errorf("%w: money: parse amount %q: %w", ErrInvalidInput, s, err)
	}
	return v, nil
}

func normalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func currencySymbol(currency string) (string, bool) {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
	}
	sym, ok := symbols[currency]
	return sym, ok
}

// currencyDecimals returns the number of decimal places for a denomination.
func currencyDecimals(currency string) int {
	switch currency {
	case "eth":
		return 18
	case "usd", "eur", "gbp":
		return 2
	default:
		// wei, gwei and unknown denominations are already base units.
		return 0
	}
}
