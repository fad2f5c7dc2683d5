// Package file implements store.Store as a single snapshot file. Every
// commit rewrites the file through a temporary file and an atomic rename,
// so a crash leaves either the old or the new state on disk. It suits
// single-node deployments with modest supply caps.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store keeps the committed state in memory and mirrors it to path.
type Store struct {
	mu     sync.RWMutex
	path   string
	closed bool
	data   *contents
}

// Open reads the snapshot at path if it exists. The file is created on the
// first commit.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: &contents{}}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("membership/file: read %s: %w", path, err)
	}

	c, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", membership.ErrStateCorrupt, path, err)
	}
	s.data = c
	return s, nil
}

// Path returns the snapshot location.
func (s *Store) Path() string { return s.path }

// Migrate ensures the parent directory exists.
func (s *Store) Migrate(_ context.Context) error {
	if err := s.open(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("membership/file: %w", err)
	}
	return nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error { return s.open() }

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Load returns a copy of the committed state.
func (s *Store) Load(_ context.Context) (*mstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}

	snap := &mstore.Snapshot{}
	if s.data.Settings != nil {
		settings := *s.data.Settings
		snap.Settings = &settings
	}
	for _, t := range s.data.Tiers {
		snap.Tiers = append(snap.Tiers, t.Clone())
	}
	for _, rec := range s.data.Tokens {
		snap.Tokens = append(snap.Tokens, &mstore.TokenRecord{Token: rec.Token.Clone(), ExpiresAt: rec.ExpiresAt})
	}
	return snap, nil
}

// Commit applies cs to a copy of the state, writes it and then swaps it in.
func (s *Store) Commit(_ context.Context, cs *mstore.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return membership.ErrStoreClosed
	}

	next := apply(s.data, cs)
	raw, err := encode(next)
	if err != nil {
		return fmt.Errorf("membership/file: encode: %w", err)
	}
	if err := writeAtomic(s.path, raw); err != nil {
		return fmt.Errorf("membership/file: write %s: %w", s.path, err)
	}

	s.data = next
	return nil
}

// ListEvents returns matching events in sequence order.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}
	return mstore.Filter(s.data.Events, opts), nil
}

func (s *Store) open() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return membership.ErrStoreClosed
	}
	return nil
}

// apply returns a new contents with cs folded in. Ids are dense, so a row
// with id equal to the current length is an append.
func apply(cur *contents, cs *mstore.Changeset) *contents {
	settings := cs.Settings
	next := &contents{
		Settings: &settings,
		Tiers:    append([]*tier.Tier(nil), cur.Tiers...),
		Tokens:   append([]*mstore.TokenRecord(nil), cur.Tokens...),
		Events:   append([]*event.Event(nil), cur.Events...),
	}

	for _, t := range cs.Tiers {
		next.Tiers = put(next.Tiers, t.ID, t.Clone())
	}
	for _, rec := range cs.Tokens {
		next.Tokens = put(next.Tokens, rec.Token.ID, &mstore.TokenRecord{Token: rec.Token.Clone(), ExpiresAt: rec.ExpiresAt})
	}
	for _, ev := range cs.Events {
		next.Events = append(next.Events, ev.Clone())
	}
	return next
}

func put[T any](rows []*T, id uint64, row *T) []*T {
	for uint64(len(rows)) <= id {
		rows = append(rows, nil)
	}
	rows[id] = row
	return rows
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
