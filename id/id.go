// Package id defines TypeID-based identifiers for Membership records that
// are not part of the dense tier/token numbering: events, transactions and
// payment receipts.
//
// IDs are K-sortable (UUIDv7-based), globally unique and URL-safe in the
// format "prefix_suffix", so the committed event log sorts by commit time.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for Membership record types.
const (
	PrefixEvent       Prefix = "evt" // Committed domain event
	PrefixTransaction Prefix = "txn" // Committed transaction
	PrefixPayment     Prefix = "pay" // Accepted payment receipt
)

// ID wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "evt_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// EventID is a type-safe identifier for events (prefix: "evt").
type EventID = ID

// TransactionID is a type-safe identifier for transactions (prefix: "txn").
type TransactionID = ID

// PaymentID is a type-safe identifier for payment receipts (prefix: "pay").
type PaymentID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewEventID generates a new unique event ID.
func NewEventID() ID { return New(PrefixEvent) }

// NewTransactionID generates a new unique transaction ID.
func NewTransactionID() ID { return New(PrefixTransaction) }

// NewPaymentID generates a new unique payment receipt ID.
func NewPaymentID() ID { return New(PrefixPayment) }

// ParseEventID parses a string and validates the "evt" prefix.
func ParseEventID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEvent) }

// ParseTransactionID parses a string and validates the "txn" prefix.
func ParseTransactionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransaction) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ──────────────────────────────────────────────────
// Encoding
// ──────────────────────────────────────────────────

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if i.IsNil() {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component, or "" for Nil.
func (i ID) Prefix() Prefix {
	if i.IsNil() {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler. Nil encodes as empty text.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes
// to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	return i.set(string(data))
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if i.IsNil() {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.String(), nil
}

// Scan implements sql.Scanner for text columns.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.set(v)
	case []byte:
		return i.set(string(v))
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

func (i *ID) set(s string) error {
	if s == "" {
		*i = Nil
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
