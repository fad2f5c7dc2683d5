// Package expiry tracks when each token stops granting access.
package expiry

import (
	"maps"
	"time"

	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

// Owners is the view of the token table needed for membership scans.
type Owners interface {
	TotalMinted() uint64
	OwnerOf(id uint64) (types.Address, error)
}

// Clock maps token ids to expiration times. Expirations only move forward.
type Clock struct {
	expires map[uint64]time.Time
}

// NewClock returns an empty expiration table.
func NewClock() *Clock {
	return &Clock{expires: make(map[uint64]time.Time)}
}

// Restore rebuilds the table from persisted expirations.
func Restore(expires map[uint64]time.Time) *Clock {
	c := NewClock()
	for id, at := range expires {
		c.expires[id] = at.UTC()
	}
	return c
}

// Extend sets the expiration of tokenID to max(current, now) + d and
// returns it. Unused time is carried over, so renewing early stacks.
// A token with no expiration yet starts from now.
func (c *Clock) Extend(tokenID uint64, d time.Duration, now time.Time) time.Time {
	base := now.UTC().Truncate(time.Second)
	if cur, ok := c.expires[tokenID]; ok && cur.After(base) {
		base = cur
	}
	next := base.Add(d.Truncate(time.Second))
	c.expires[tokenID] = next
	return next
}

// ExpirationOf returns the expiration of tokenID.
func (c *Clock) ExpirationOf(tokenID uint64) (time.Time, error) {
	at, ok := c.expires[tokenID]
	if !ok {
		return time.Time{}, token.ErrNotFound
	}
	return at, nil
}

// IsActive reports whether tokenID expires strictly after now.
func (c *Clock) IsActive(tokenID uint64, now time.Time) (bool, error) {
	at, err := c.ExpirationOf(tokenID)
	if err != nil {
		return false, err
	}
	return at.After(now), nil
}

// IsMember reports whether addr owns at least one active token.
// The scan is bounded by the number of minted tokens.
func (c *Clock) IsMember(owners Owners, addr types.Address, now time.Time) bool {
	if addr.IsZero() {
		return false
	}
	total := owners.TotalMinted()
	for id := uint64(0); id < total; id++ {
		if c.activeFor(owners, id, addr, now) {
			return true
		}
	}
	return false
}

// ActiveTokens returns the ids of all active tokens owned by addr.
func (c *Clock) ActiveTokens(owners Owners, addr types.Address, now time.Time) []uint64 {
	var ids []uint64
	if addr.IsZero() {
		return ids
	}
	total := owners.TotalMinted()
	for id := uint64(0); id < total; id++ {
		if c.activeFor(owners, id, addr, now) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns an independent copy of the table.
func (c *Clock) Clone() *Clock {
	return &Clock{expires: maps.Clone(c.expires)}
}

func (c *Clock) activeFor(owners Owners, id uint64, addr types.Address, now time.Time) bool {
	owner, err := owners.OwnerOf(id)
	if err != nil || !owner.Equal(addr) {
		return false
	}
	active, err := c.IsActive(id, now)
	return err == nil && active
}
