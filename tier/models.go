package tier

import (
	"time"

	"github.com/xraph/membership/types"
)

// Tier is a priced, timed access plan that buyers subscribe to.
// Tiers are never removed; clearing Active is the only retirement signal.
type Tier struct {
	types.Entity
	ID       uint64        `json:"id"`
	Price    types.Money   `json:"price"`
	Duration time.Duration `json:"duration"`
	Active   bool          `json:"active"`
}

// DurationSeconds returns the tier duration in whole seconds.
func (t *Tier) DurationSeconds() uint64 {
	return uint64(t.Duration / time.Second)
}

// Clone returns a copy of t.
func (t *Tier) Clone() *Tier {
	c := *t
	return &c
}
