// Package memory provides an in-process store for tests and ephemeral
// deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store keeps committed state in maps guarded by a single lock.
type Store struct {
	mu     sync.RWMutex
	closed bool

	settings *mstore.Settings
	tiers    map[uint64]*tier.Tier
	tokens   map[uint64]*mstore.TokenRecord
	events   []*event.Event

	// failNext makes the next Commit fail; used to test rollback.
	failNext error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tiers:  make(map[uint64]*tier.Tier),
		tokens: make(map[uint64]*mstore.TokenRecord),
	}
}

// FailNextCommit makes the next Commit return err without writing.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Load returns a copy of the committed state.
func (s *Store) Load(_ context.Context) (*mstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}

	snap := &mstore.Snapshot{}
	if s.settings != nil {
		settings := *s.settings
		snap.Settings = &settings
	}
	for _, t := range s.tiers {
		snap.Tiers = append(snap.Tiers, t.Clone())
	}
	for _, rec := range s.tokens {
		snap.Tokens = append(snap.Tokens, &mstore.TokenRecord{Token: rec.Token.Clone(), ExpiresAt: rec.ExpiresAt})
	}
	sort.Slice(snap.Tiers, func(i, j int) bool { return snap.Tiers[i].ID < snap.Tiers[j].ID })
	sort.Slice(snap.Tokens, func(i, j int) bool { return snap.Tokens[i].Token.ID < snap.Tokens[j].Token.ID })
	return snap, nil
}

// Commit applies the change set under the write lock.
func (s *Store) Commit(_ context.Context, cs *mstore.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return membership.ErrStoreClosed
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}

	settings := cs.Settings
	s.settings = &settings
	for _, t := range cs.Tiers {
		s.tiers[t.ID] = t.Clone()
	}
	for _, rec := range cs.Tokens {
		s.tokens[rec.Token.ID] = &mstore.TokenRecord{Token: rec.Token.Clone(), ExpiresAt: rec.ExpiresAt}
	}
	for _, ev := range cs.Events {
		s.events = append(s.events, ev.Clone())
	}
	return nil
}

// ListEvents returns matching events in sequence order.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}
	return mstore.Filter(s.events, opts), nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return membership.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
