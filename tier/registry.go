// Package tier holds the tier table: dense, append-only tier definitions
// that are overwritten in place and never removed.
package tier

import (
	"fmt"
	"time"

	"github.com/xraph/membership/types"
)

// ErrNotFound is returned for an unknown tier id.
var ErrNotFound = types.NewKindError(types.ErrNotFound, "membership: tier not found")

// Registry is the tier table. Tier ids equal their index.
// Stored tiers are never mutated in place, so clones may share them.
type Registry struct {
	tiers []*Tier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Restore rebuilds a registry from persisted tiers. The ids must be dense
// from zero.
func Restore(tiers []*Tier) (*Registry, error) {
	r := &Registry{tiers: make([]*Tier, len(tiers))}
	for _, t := range tiers {
		if t.ID >= uint64(len(tiers)) || r.tiers[t.ID] != nil {
			return nil, fmt.Errorf("tier: restore: id %d out of sequence", t.ID)
		}
		r.tiers[t.ID] = t.Clone()
	}
	return r, nil
}

// Create appends an active tier and returns it.
func (r *Registry) Create(price types.Money, duration time.Duration, now time.Time) (*Tier, error) {
	if err := validateDuration(duration); err != nil {
		return nil, err
	}

	t := &Tier{
		Entity:   types.NewEntity(now),
		ID:       uint64(len(r.tiers)),
		Price:    price,
		Duration: duration,
		Active:   true,
	}
	r.tiers = append(r.tiers, t)
	return t.Clone(), nil
}

// Update overwrites every mutable field of an existing tier and returns
// the previous and new values.
func (r *Registry) Update(id uint64, price types.Money, duration time.Duration, active bool, now time.Time) (prev, next *Tier, err error) {
	if id >= uint64(len(r.tiers)) {
		return nil, nil, ErrNotFound
	}
	if err := validateDuration(duration); err != nil {
		return nil, nil, err
	}

	prev = r.tiers[id].Clone()
	t := r.tiers[id].Clone()
	t.Price = price
	t.Duration = duration
	t.Active = active
	t.Touch(now)
	r.tiers[id] = t
	return prev, t.Clone(), nil
}

// Get returns a copy of the tier with the given id.
func (r *Registry) Get(id uint64) (*Tier, error) {
	if id >= uint64(len(r.tiers)) {
		return nil, ErrNotFound
	}
	return r.tiers[id].Clone(), nil
}

// List returns copies of all tiers in id order.
func (r *Registry) List() []*Tier {
	out := make([]*Tier, len(r.tiers))
	for i, t := range r.tiers {
		out[i] = t.Clone()
	}
	return out
}

// Count returns the number of tiers, which is also the next tier id.
func (r *Registry) Count() uint64 {
	return uint64(len(r.tiers))
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{tiers: make([]*Tier, len(r.tiers))}
	copy(c.tiers, r.tiers)
	return c
}

func validateDuration(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("%w: tier duration must be at least one second", types.ErrInvalidInput)
	}
	if d%time.Second != 0 {
		return fmt.Errorf("%w: tier duration must be whole seconds", types.ErrInvalidInput)
	}
	return nil
}
