// Package store defines the persistence contract for the membership engine.
//
// The engine keeps the authoritative state in memory and writes each
// transaction through Commit as a single atomic change set. Backends must
// apply a change set entirely or not at all.
package store

import (
	"context"
	"time"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

// Store is the unified storage interface for membership state.
type Store interface {
	// Load returns everything committed so far. A store that has never
	// seen a commit returns a Snapshot with nil Settings.
	Load(ctx context.Context) (*Snapshot, error)

	// Commit atomically upserts the touched rows and appends the events.
	Commit(ctx context.Context, cs *Changeset) error

	// ListEvents reads the committed event log in sequence order.
	ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Settings is the single settings row: the construction-time configuration
// the state was created with, the mutable base URI and the event counter.
type Settings struct {
	Name      string        `json:"name"`
	Symbol    string        `json:"symbol"`
	MaxSupply uint64        `json:"max_supply"`
	Admin     types.Address `json:"admin"`
	Currency  string        `json:"currency"`
	BaseURI   string        `json:"base_uri"`
	EventSeq  uint64        `json:"event_seq"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TokenRecord is a token row: ownership data plus its expiration.
type TokenRecord struct {
	Token     *token.Token `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Snapshot is the full committed state.
type Snapshot struct {
	Settings *Settings
	Tiers    []*tier.Tier
	Tokens   []*TokenRecord
}

// Changeset is the write set of one transaction.
type Changeset struct {
	TransactionID id.TransactionID
	Settings      Settings
	Tiers         []*tier.Tier
	Tokens        []*TokenRecord
	Events        []*event.Event
}

// Filter applies opts to events already in sequence order.
func Filter(events []*event.Event, opts event.ListOpts) []*event.Event {
	out := make([]*event.Event, 0)
	for _, ev := range events {
		if !opts.Matches(ev) {
			continue
		}
		out = append(out, ev.Clone())
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out
}
