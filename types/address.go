package types

import "strings"

// Address identifies a caller, owner or operator. Addresses are opaque to
// the core; comparison is case-insensitive so that checksummed and lowercase
// hex forms refer to the same identity.
type Address string

// NoAddress is the zero address. It never owns tokens and clears approvals.
const NoAddress Address = ""

// NewAddress normalizes s into an Address. The all-zero hex address
// ("0x0000...0000") normalizes to NoAddress.
func NewAddress(s string) Address {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := strings.CutPrefix(s, "0x"); ok && hex != "" && strings.Trim(hex, "0") == "" {
		return NoAddress
	}
	return Address(s)
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a.Normalize() == NoAddress }

// Normalize returns the canonical form of a.
func (a Address) Normalize() Address { return NewAddress(string(a)) }

// Equal reports whether a and other refer to the same identity.
// The zero address is never equal to anything, including itself.
func (a Address) Equal(other Address) bool {
	na, no := a.Normalize(), other.Normalize()
	return na != NoAddress && na == no
}

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }
