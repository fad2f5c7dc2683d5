// Package token holds the token table: ownership, the single approved
// operator per token, and the supply cap.
package token

import (
	"fmt"
	"time"

	"github.com/xraph/membership/types"
)

// ErrNotFound is returned for an unminted token id.
var ErrNotFound = types.NewKindError(types.ErrNotFound, "membership: token not found")

// Ledger is the token table. Token ids equal their index and are never
// reused. Stored tokens are replaced, never mutated, so clones may share
// them.
type Ledger struct {
	maxSupply uint64
	tokens    []*Token
}

// NewLedger returns an empty ledger capped at maxSupply tokens.
func NewLedger(maxSupply uint64) *Ledger {
	return &Ledger{maxSupply: maxSupply}
}

// Restore rebuilds a ledger from persisted tokens.
func Restore(maxSupply uint64, tokens []*Token) (*Ledger, error) {
	if uint64(len(tokens)) > maxSupply {
		return nil, fmt.Errorf("token: restore: %d tokens exceed max supply %d", len(tokens), maxSupply)
	}
	l := &Ledger{maxSupply: maxSupply, tokens: make([]*Token, len(tokens))}
	for _, t := range tokens {
		if t.ID >= uint64(len(tokens)) || l.tokens[t.ID] != nil {
			return nil, fmt.Errorf("token: restore: id %d out of sequence", t.ID)
		}
		l.tokens[t.ID] = t.Clone()
	}
	return l, nil
}

// Mint creates the next token for owner, referencing tierID.
func (l *Ledger) Mint(owner types.Address, tierID uint64, now time.Time) (*Token, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: cannot mint to the zero address", types.ErrInvalidInput)
	}
	if l.TotalMinted() >= l.maxSupply {
		return nil, types.ErrSupplyExhausted
	}

	t := &Token{
		Entity: types.NewEntity(now),
		ID:     uint64(len(l.tokens)),
		Owner:  owner.Normalize(),
		TierID: tierID,
	}
	l.tokens = append(l.tokens, t)
	return t.Clone(), nil
}

// Get returns a copy of the token.
func (l *Ledger) Get(id uint64) (*Token, error) {
	t, err := l.get(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// OwnerOf returns the current owner of a token.
func (l *Ledger) OwnerOf(id uint64) (types.Address, error) {
	t, err := l.get(id)
	if err != nil {
		return types.NoAddress, err
	}
	return t.Owner, nil
}

// GetApproved returns the approved operator, or NoAddress.
func (l *Ledger) GetApproved(id uint64) (types.Address, error) {
	t, err := l.get(id)
	if err != nil {
		return types.NoAddress, err
	}
	return t.Approved, nil
}

// Approve sets the single delegate of a token, replacing any previous one.
// The zero address clears the delegate. Approving the owner is rejected.
func (l *Ledger) Approve(id uint64, operator types.Address, now time.Time) (*Token, error) {
	t, err := l.get(id)
	if err != nil {
		return nil, err
	}
	if t.Owner.Equal(operator) {
		return nil, fmt.Errorf("%w: owner cannot approve itself", types.ErrInvalidInput)
	}

	next := t.Clone()
	next.Approved = operator.Normalize()
	next.Touch(now)
	l.tokens[id] = next
	return next.Clone(), nil
}

// IsApprovedOrOwner reports whether caller may act on the token.
func (l *Ledger) IsApprovedOrOwner(id uint64, caller types.Address) (bool, error) {
	t, err := l.get(id)
	if err != nil {
		return false, err
	}
	return t.IsApprovedOrOwner(caller), nil
}

// Transfer moves a token to a new owner and clears its delegate.
// It returns the previous owner.
func (l *Ledger) Transfer(id uint64, to types.Address, now time.Time) (types.Address, *Token, error) {
	t, err := l.get(id)
	if err != nil {
		return types.NoAddress, nil, err
	}
	if to.IsZero() {
		return types.NoAddress, nil, fmt.Errorf("%w: cannot transfer to the zero address", types.ErrInvalidInput)
	}

	next := t.Clone()
	next.Owner = to.Normalize()
	next.Approved = types.NoAddress
	next.Touch(now)
	l.tokens[id] = next
	return t.Owner, next.Clone(), nil
}

// BalanceOf returns the number of tokens owned by owner.
func (l *Ledger) BalanceOf(owner types.Address) uint64 {
	var n uint64
	for _, t := range l.tokens {
		if t.Owner.Equal(owner) {
			n++
		}
	}
	return n
}

// TokensOf returns the ids owned by owner in ascending order.
func (l *Ledger) TokensOf(owner types.Address) []uint64 {
	var ids []uint64
	for _, t := range l.tokens {
		if t.Owner.Equal(owner) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// List returns copies of all tokens in id order.
func (l *Ledger) List() []*Token {
	out := make([]*Token, len(l.tokens))
	for i, t := range l.tokens {
		out[i] = t.Clone()
	}
	return out
}

// TotalMinted returns the number of tokens ever minted.
func (l *Ledger) TotalMinted() uint64 { return uint64(len(l.tokens)) }

// MaxSupply returns the supply cap.
func (l *Ledger) MaxSupply() uint64 { return l.maxSupply }

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{maxSupply: l.maxSupply, tokens: make([]*Token, len(l.tokens))}
	copy(c.tokens, l.tokens)
	return c
}

func (l *Ledger) get(id uint64) (*Token, error) {
	if id >= uint64(len(l.tokens)) {
		return nil, ErrNotFound
	}
	return l.tokens[id], nil
}
