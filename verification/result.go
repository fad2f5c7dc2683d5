// Package verification describes the answer a third-party verifier gets
// when it asks whether an address currently holds a membership.
package verification

import (
	"time"

	"github.com/xraph/membership/types"
)

// Reasons reported when an address is not a member.
const (
	ReasonNoTokens      = "address holds no tokens"
	ReasonAllExpired    = "all tokens have expired"
	ReasonInvalidHolder = "zero address cannot hold tokens"
)

// Result is the verdict for a single address.
type Result struct {
	Address      types.Address `json:"address"`
	Member       bool          `json:"member"`
	ActiveTokens []TokenStatus `json:"active_tokens"`
	Held         int           `json:"held"`
	Reason       string        `json:"reason,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// TokenStatus describes one active token backing a membership.
type TokenStatus struct {
	TokenID   uint64    `json:"token_id"`
	TierID    uint64    `json:"tier_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Soonest returns the active token that expires first, or false when
// there is none.
func (r *Result) Soonest() (TokenStatus, bool) {
	if len(r.ActiveTokens) == 0 {
		return TokenStatus{}, false
	}
	best := r.ActiveTokens[0]
	for _, ts := range r.ActiveTokens[1:] {
		if ts.ExpiresAt.Before(best.ExpiresAt) {
			best = ts
		}
	}
	return best, true
}
