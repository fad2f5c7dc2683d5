package types

import "errors"

// Base domain errors shared by the component packages. The root package
// re-exports them so that callers only need errors.Is(err, membership.ErrX).
var (
	ErrNotFound        = errors.New("membership: not found")
	ErrUnauthorized    = errors.New("membership: unauthorized")
	ErrInactiveTier    = errors.New("membership: tier is inactive")
	ErrWrongPrice      = errors.New("membership: payment does not match tier price")
	ErrSupplyExhausted = errors.New("membership: supply exhausted")
	ErrInvalidInput    = errors.New("membership: invalid input")
)

// KindError is a named error that also matches a broader base error.
// ErrTierNotFound is a KindError whose Kind is ErrNotFound.
type KindError struct {
	Msg  string
	Kind error
}

// NewKindError creates an error with message msg that satisfies
// errors.Is(err, kind).
func NewKindError(kind error, msg string) *KindError {
	return &KindError{Msg: msg, Kind: kind}
}

func (e *KindError) Error() string { return e.Msg }

// Unwrap returns the base error.
func (e *KindError) Unwrap() error { return e.Kind }
