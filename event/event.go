// Package event defines the domain events committed with each membership
// transaction and the filters used to read them back.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/types"
)

// Type names a domain event.
type Type string

const (
	TypeTierCreated    Type = "tier.created"
	TypeTierUpdated    Type = "tier.updated"
	TypePurchased      Type = "token.purchased"
	TypeRenewed        Type = "token.renewed"
	TypeApproval       Type = "token.approval"
	TypeTransfer       Type = "token.transfer"
	TypeBaseURIUpdated Type = "settings.base_uri_updated"
)

// Event is a committed domain event as persisted in the event log.
// Seq is assigned by the engine and increases by one per event.
type Event struct {
	ID            id.EventID       `json:"id"`
	Seq           uint64           `json:"seq"`
	TransactionID id.TransactionID `json:"transaction_id"`
	Type          Type             `json:"type"`
	TokenID       *uint64          `json:"token_id,omitempty"`
	TierID        *uint64          `json:"tier_id,omitempty"`
	Actor         types.Address    `json:"actor,omitempty"`
	Payload       json.RawMessage  `json:"payload"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Payload is the typed body of an event.
type Payload interface {
	EventType() Type
	subjects() (tokenID, tierID *uint64, actor types.Address)
}

// New encodes p into an Event. The engine supplies the transaction, the
// sequence number and the commit time.
func New(txID id.TransactionID, seq uint64, p Payload, at time.Time) (*Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("event: encode %s: %w", p.EventType(), err)
	}

	tokenID, tierID, actor := p.subjects()
	return &Event{
		ID:            id.NewEventID(),
		Seq:           seq,
		TransactionID: txID,
		Type:          p.EventType(),
		TokenID:       tokenID,
		TierID:        tierID,
		Actor:         actor,
		Payload:       body,
		OccurredAt:    at.UTC(),
	}, nil
}

// Decode returns the typed payload of e.
func (e *Event) Decode() (Payload, error) {
	var p Payload
	switch e.Type {
	case TypeTierCreated:
		p = &TierCreated{}
	case TypeTierUpdated:
		p = &TierUpdated{}
	case TypePurchased:
		p = &Purchased{}
	case TypeRenewed:
		p = &Renewed{}
	case TypeApproval:
		p = &Approval{}
	case TypeTransfer:
		p = &Transfer{}
	case TypeBaseURIUpdated:
		p = &BaseURIUpdated{}
	default:
		return nil, fmt.Errorf("event: unknown type %q", e.Type)
	}

	if err := json.Unmarshal(e.Payload, p); err != nil {
		return nil, fmt.Errorf("event: decode %s: %w", e.Type, err)
	}
	return p, nil
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	if e.TokenID != nil {
		v := *e.TokenID
		c.TokenID = &v
	}
	if e.TierID != nil {
		v := *e.TierID
		c.TierID = &v
	}
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	return &c
}

// ListOpts filters the event log. Results are ordered by Seq ascending.
type ListOpts struct {
	Type     Type
	TokenID  *uint64
	TierID   *uint64
	Actor    types.Address
	AfterSeq uint64
	Limit    int
}

// Matches reports whether e passes the filter, ignoring Limit.
func (o ListOpts) Matches(e *Event) bool {
	if o.Type != "" && e.Type != o.Type {
		return false
	}
	if o.TokenID != nil && (e.TokenID == nil || *e.TokenID != *o.TokenID) {
		return false
	}
	if o.TierID != nil && (e.TierID == nil || *e.TierID != *o.TierID) {
		return false
	}
	if !o.Actor.IsZero() && !o.Actor.Equal(e.Actor) {
		return false
	}
	return e.Seq > o.AfterSeq
}

func ptr(v uint64) *uint64 { return &v }
