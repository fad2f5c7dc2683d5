package event

import (
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/types"
)

// TierCreated is emitted when the admin appends a tier.
type TierCreated struct {
	TierID          uint64        `json:"tier_id"`
	Price           types.Money   `json:"price"`
	DurationSeconds uint64        `json:"duration_seconds"`
	Admin           types.Address `json:"admin"`
}

func (*TierCreated) EventType() Type { return TypeTierCreated }

func (p *TierCreated) subjects() (*uint64, *uint64, types.Address) {
	return nil, ptr(p.TierID), p.Admin
}

// TierUpdated is emitted when the admin overwrites a tier.
type TierUpdated struct {
	TierID          uint64        `json:"tier_id"`
	Price           types.Money   `json:"price"`
	DurationSeconds uint64        `json:"duration_seconds"`
	Active          bool          `json:"active"`
	WasActive       bool          `json:"was_active"`
	Admin           types.Address `json:"admin"`
}

func (*TierUpdated) EventType() Type { return TypeTierUpdated }

func (p *TierUpdated) subjects() (*uint64, *uint64, types.Address) {
	return nil, ptr(p.TierID), p.Admin
}

// Purchased is emitted when a buyer mints a token.
type Purchased struct {
	TokenID   uint64        `json:"token_id"`
	Buyer     types.Address `json:"buyer"`
	TierID    uint64        `json:"tier_id"`
	ExpiresAt time.Time     `json:"expires_at"`
	Amount    types.Money   `json:"amount"`
	PaymentID id.PaymentID  `json:"payment_id"`
}

func (*Purchased) EventType() Type { return TypePurchased }

func (p *Purchased) subjects() (*uint64, *uint64, types.Address) {
	return ptr(p.TokenID), ptr(p.TierID), p.Buyer
}

// Renewed is emitted when an owner or approved operator extends a token.
type Renewed struct {
	TokenID           uint64        `json:"token_id"`
	Caller            types.Address `json:"caller"`
	TierID            uint64        `json:"tier_id"`
	PreviousExpiresAt time.Time     `json:"previous_expires_at"`
	NewExpiresAt      time.Time     `json:"new_expires_at"`
	Amount            types.Money   `json:"amount"`
	PaymentID         id.PaymentID  `json:"payment_id"`
}

func (*Renewed) EventType() Type { return TypeRenewed }

func (p *Renewed) subjects() (*uint64, *uint64, types.Address) {
	return ptr(p.TokenID), ptr(p.TierID), p.Caller
}

// Approval is emitted when an owner sets or clears a token's operator.
type Approval struct {
	TokenID  uint64        `json:"token_id"`
	Owner    types.Address `json:"owner"`
	Operator types.Address `json:"operator"`
}

func (*Approval) EventType() Type { return TypeApproval }

func (p *Approval) subjects() (*uint64, *uint64, types.Address) {
	return ptr(p.TokenID), nil, p.Owner
}

// Transfer is emitted when a token changes owner.
type Transfer struct {
	TokenID uint64        `json:"token_id"`
	Caller  types.Address `json:"caller"`
	From    types.Address `json:"from"`
	To      types.Address `json:"to"`
}

func (*Transfer) EventType() Type { return TypeTransfer }

func (p *Transfer) subjects() (*uint64, *uint64, types.Address) {
	return ptr(p.TokenID), nil, p.Caller
}

// BaseURIUpdated is emitted when the admin changes the descriptor base URI.
type BaseURIUpdated struct {
	Admin    types.Address `json:"admin"`
	Previous string        `json:"previous"`
	BaseURI  string        `json:"base_uri"`
}

func (*BaseURIUpdated) EventType() Type { return TypeBaseURIUpdated }

func (p *BaseURIUpdated) subjects() (*uint64, *uint64, types.Address) {
	return nil, nil, p.Admin
}
