package membership

import (
	"fmt"
	"time"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/expiry"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
)

// state is one immutable version of the membership tables. The committed
// version is published through an atomic pointer; writers stage changes
// on a clone and publish it only after the store accepted the commit.
type state struct {
	settings store.Settings
	tiers    *tier.Registry
	tokens   *token.Ledger
	expiries *expiry.Clock
}

func newState(cfg Config) *state {
	return &state{
		settings: store.Settings{
			Name:      cfg.Name,
			Symbol:    cfg.Symbol,
			MaxSupply: cfg.MaxSupply,
			Admin:     adminAddress(cfg),
			Currency:  cfg.currency(),
			BaseURI:   cfg.BaseURI,
		},
		tiers:    tier.NewRegistry(),
		tokens:   token.NewLedger(cfg.MaxSupply),
		expiries: expiry.NewClock(),
	}
}

// restoreState rebuilds state from a snapshot, checking it against cfg.
func restoreState(cfg Config, snap *store.Snapshot) (*state, error) {
	if snap == nil || snap.Settings == nil {
		return newState(cfg), nil
	}

	st := snap.Settings
	want := newState(cfg).settings
	switch {
	case st.Name != want.Name, st.Symbol != want.Symbol:
		return nil, fmt.Errorf("%w: stored collection is %s (%s)", ErrConfigMismatch, st.Name, st.Symbol)
	case st.MaxSupply != want.MaxSupply:
		return nil, fmt.Errorf("%w: stored max supply is %d", ErrConfigMismatch, st.MaxSupply)
	case !st.Admin.Equal(want.Admin):
		return nil, fmt.Errorf("%w: stored admin is %s", ErrConfigMismatch, st.Admin)
	case st.Currency != want.Currency:
		return nil, fmt.Errorf("%w: stored currency is %s", ErrConfigMismatch, st.Currency)
	}

	tiers, err := tier.Restore(snap.Tiers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}

	toks := make([]*token.Token, len(snap.Tokens))
	expires := make(map[uint64]time.Time, len(snap.Tokens))
	for i, rec := range snap.Tokens {
		if rec.Token.TierID >= tiers.Count() {
			return nil, fmt.Errorf("%w: token %d references unknown tier %d", ErrStateCorrupt, rec.Token.ID, rec.Token.TierID)
		}
		toks[i] = rec.Token
		expires[rec.Token.ID] = rec.ExpiresAt
	}
	tokens, err := token.Restore(st.MaxSupply, toks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}

	return &state{
		settings: *st,
		tiers:    tiers,
		tokens:   tokens,
		expiries: expiry.Restore(expires),
	}, nil
}

func (s *state) clone() *state {
	return &state{
		settings: s.settings,
		tiers:    s.tiers.Clone(),
		tokens:   s.tokens.Clone(),
		expiries: s.expiries.Clone(),
	}
}

// txn stages one transaction. Touched rows are tracked so the change set
// carries only what this transaction wrote.
type txn struct {
	id  id.TransactionID
	op  string
	now time.Time
	st  *state

	tiers    map[uint64]struct{}
	tokens   map[uint64]struct{}
	payloads []event.Payload
}

func newTxn(op string, cur *state, now time.Time) *txn {
	return &txn{
		id:     id.NewTransactionID(),
		op:     op,
		now:    now,
		st:     cur.clone(),
		tiers:  make(map[uint64]struct{}),
		tokens: make(map[uint64]struct{}),
	}
}

func (tx *txn) touchTier(id uint64)  { tx.tiers[id] = struct{}{} }
func (tx *txn) touchToken(id uint64) { tx.tokens[id] = struct{}{} }

func (tx *txn) emit(p event.Payload) { tx.payloads = append(tx.payloads, p) }

// changeset encodes the staged writes and the events. It also advances the
// staged event counter.
func (tx *txn) changeset() (*store.Changeset, []*event.Event, error) {
	cs := &store.Changeset{TransactionID: tx.id}

	for tierID := range tx.tiers {
		t, err := tx.st.tiers.Get(tierID)
		if err != nil {
			return nil, nil, err
		}
		cs.Tiers = append(cs.Tiers, t)
	}
	for tokenID := range tx.tokens {
		tok, err := tx.st.tokens.Get(tokenID)
		if err != nil {
			return nil, nil, err
		}
		exp, err := tx.st.expiries.ExpirationOf(tokenID)
		if err != nil {
			return nil, nil, err
		}
		cs.Tokens = append(cs.Tokens, &store.TokenRecord{Token: tok, ExpiresAt: exp})
	}

	events := make([]*event.Event, 0, len(tx.payloads))
	for _, p := range tx.payloads {
		tx.st.settings.EventSeq++
		ev, err := event.New(tx.id, tx.st.settings.EventSeq, p, tx.now)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	cs.Events = events

	tx.st.settings.UpdatedAt = tx.now
	cs.Settings = tx.st.settings
	return cs, events, nil
}
