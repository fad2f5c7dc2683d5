package token

import "github.com/xraph/membership/types"

// Token is a minted membership credential. Expiry is tracked separately
// by the expiry package.
type Token struct {
	types.Entity
	ID       uint64        `json:"id"`
	Owner    types.Address `json:"owner"`
	TierID   uint64        `json:"tier_id"`
	Approved types.Address `json:"approved,omitempty"`
}

// Clone returns a copy of t.
func (t *Token) Clone() *Token {
	c := *t
	return &c
}

// IsApprovedOrOwner reports whether caller owns t or is its approved operator.
func (t *Token) IsApprovedOrOwner(caller types.Address) bool {
	return t.Owner.Equal(caller) || t.Approved.Equal(caller)
}
