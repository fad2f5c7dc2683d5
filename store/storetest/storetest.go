// Package storetest holds the behavior every store.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	"github.com/xraph/membership/id"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

var (
	admin = types.NewAddress("0xad000000000000000000000000000000000000a1")
	alice = types.NewAddress("0xa11ce00000000000000000000000000000000001")
	bob   = types.NewAddress("0xb0b0000000000000000000000000000000000002")

	t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

// Run exercises a fresh store returned by open. Each subtest gets its own
// store; open must return an empty, migrated-or-migratable backend.
func Run(t *testing.T, open func(t *testing.T) mstore.Store) {
	t.Helper()

	t.Run("EmptyLoad", func(t *testing.T) {
		s := prepare(t, open)
		snap, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if snap.Settings != nil || len(snap.Tiers) != 0 || len(snap.Tokens) != 0 {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
	})

	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		s := prepare(t, open)
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("second Migrate: %v", err)
		}
	})

	t.Run("CommitAndLoad", func(t *testing.T) {
		s := prepare(t, open)
		ctx := context.Background()

		if err := s.Commit(ctx, purchaseChangeset(t)); err != nil {
			t.Fatalf("Commit: %v", err)
		}

		snap, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if snap.Settings == nil {
			t.Fatal("settings not persisted")
		}
		if snap.Settings.Name != "Altura Pass" || snap.Settings.MaxSupply != 100 ||
			!snap.Settings.Admin.Equal(admin) || snap.Settings.EventSeq != 2 {
			t.Errorf("settings = %+v", snap.Settings)
		}
		if len(snap.Tiers) != 1 {
			t.Fatalf("tiers = %d, want 1", len(snap.Tiers))
		}
		got := snap.Tiers[0]
		if got.ID != 0 || !got.Price.Equal(types.Wei(10_000_000_000_000_000)) ||
			got.Duration != 7*24*time.Hour || !got.Active {
			t.Errorf("tier = %+v", got)
		}
		if len(snap.Tokens) != 1 {
			t.Fatalf("tokens = %d, want 1", len(snap.Tokens))
		}
		rec := snap.Tokens[0]
		if rec.Token.ID != 0 || !rec.Token.Owner.Equal(alice) || rec.Token.TierID != 0 {
			t.Errorf("token = %+v", rec.Token)
		}
		if !rec.ExpiresAt.Equal(t0.Add(7 * 24 * time.Hour)) {
			t.Errorf("expires_at = %v", rec.ExpiresAt)
		}
	})

	t.Run("CommitUpserts", func(t *testing.T) {
		s := prepare(t, open)
		ctx := context.Background()
		if err := s.Commit(ctx, purchaseChangeset(t)); err != nil {
			t.Fatal(err)
		}

		later := t0.Add(time.Hour)
		settings := baseSettings()
		settings.BaseURI = "https://meta.example/"
		settings.EventSeq = 3
		settings.UpdatedAt = later

		tk := &token.Token{Entity: types.NewEntity(t0), ID: 0, Owner: alice, TierID: 0, Approved: bob}
		tk.Touch(later)
		up := &tier.Tier{Entity: types.NewEntity(t0), ID: 0, Price: types.Wei(5), Duration: time.Hour, Active: false}
		up.Touch(later)

		cs := &mstore.Changeset{
			TransactionID: id.NewTransactionID(),
			Settings:      settings,
			Tiers:         []*tier.Tier{up},
			Tokens:        []*mstore.TokenRecord{{Token: tk, ExpiresAt: t0.Add(8 * 24 * time.Hour)}},
		}
		cs.Events = events(t, cs.TransactionID, 3, later, &event.Approval{TokenID: 0, Owner: alice, Operator: bob})
		if err := s.Commit(ctx, cs); err != nil {
			t.Fatalf("second Commit: %v", err)
		}

		snap, err := s.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Settings.BaseURI != "https://meta.example/" || snap.Settings.EventSeq != 3 {
			t.Errorf("settings = %+v", snap.Settings)
		}
		if len(snap.Tiers) != 1 || snap.Tiers[0].Active || snap.Tiers[0].Duration != time.Hour {
			t.Errorf("tier after upsert = %+v", snap.Tiers[0])
		}
		if len(snap.Tokens) != 1 || !snap.Tokens[0].Token.Approved.Equal(bob) ||
			!snap.Tokens[0].ExpiresAt.Equal(t0.Add(8*24*time.Hour)) {
			t.Errorf("token after upsert = %+v", snap.Tokens[0])
		}
	})

	t.Run("ListEvents", func(t *testing.T) {
		s := prepare(t, open)
		ctx := context.Background()
		if err := s.Commit(ctx, purchaseChangeset(t)); err != nil {
			t.Fatal(err)
		}

		all, err := s.ListEvents(ctx, event.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].Seq != 1 || all[1].Seq != 2 {
			t.Fatalf("events = %+v", all)
		}
		if all[0].Type != event.TypeTierCreated || all[1].Type != event.TypePurchased {
			t.Errorf("types = %s, %s", all[0].Type, all[1].Type)
		}

		p, err := all[1].Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if purchased, ok := p.(*event.Purchased); !ok || !purchased.Buyer.Equal(alice) {
			t.Errorf("payload = %+v", p)
		}

		tokenID := uint64(0)
		tierID := uint64(0)
		tests := []struct {
			name string
			opts event.ListOpts
			want int
		}{
			{"by type", event.ListOpts{Type: event.TypePurchased}, 1},
			{"by token", event.ListOpts{TokenID: &tokenID}, 1},
			{"by tier", event.ListOpts{TierID: &tierID}, 2},
			{"by actor", event.ListOpts{Actor: admin}, 1},
			{"after seq", event.ListOpts{AfterSeq: 1}, 1},
			{"limit", event.ListOpts{Limit: 1}, 1},
			{"no match", event.ListOpts{Type: event.TypeTransfer}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.ListEvents(ctx, tt.opts)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != tt.want {
					t.Errorf("got %d events, want %d", len(got), tt.want)
				}
			})
		}
	})

	t.Run("Closed", func(t *testing.T) {
		s := prepare(t, open)
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if _, err := s.Load(context.Background()); !errors.Is(err, membership.ErrStoreClosed) {
			t.Errorf("Load after Close: %v", err)
		}
		if err := s.Commit(context.Background(), purchaseChangeset(t)); !errors.Is(err, membership.ErrStoreClosed) {
			t.Errorf("Commit after Close: %v", err)
		}
	})
}

func prepare(t *testing.T, open func(t *testing.T) mstore.Store) mstore.Store {
	t.Helper()
	s := open(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	return s
}

func baseSettings() mstore.Settings {
	return mstore.Settings{
		Name:      "Altura Pass",
		Symbol:    "ALT",
		MaxSupply: 100,
		Admin:     admin,
		Currency:  types.DefaultCurrency,
		BaseURI:   "ipfs://cid/",
		EventSeq:  2,
		UpdatedAt: t0,
	}
}

// purchaseChangeset is a create-tier and purchase folded into one commit.
func purchaseChangeset(t *testing.T) *mstore.Changeset {
	t.Helper()

	price := types.Wei(10_000_000_000_000_000)
	tr := &tier.Tier{Entity: types.NewEntity(t0), ID: 0, Price: price, Duration: 7 * 24 * time.Hour, Active: true}
	tk := &token.Token{Entity: types.NewEntity(t0), ID: 0, Owner: alice, TierID: 0}
	expires := t0.Add(7 * 24 * time.Hour)

	cs := &mstore.Changeset{
		TransactionID: id.NewTransactionID(),
		Settings:      baseSettings(),
		Tiers:         []*tier.Tier{tr},
		Tokens:        []*mstore.TokenRecord{{Token: tk, ExpiresAt: expires}},
	}
	cs.Events = events(t, cs.TransactionID, 1, t0,
		&event.TierCreated{TierID: 0, Price: price, DurationSeconds: tr.DurationSeconds(), Admin: admin},
		&event.Purchased{TokenID: 0, Buyer: alice, TierID: 0, ExpiresAt: expires, Amount: price, PaymentID: id.NewPaymentID()},
	)
	return cs
}

func events(t *testing.T, txID id.TransactionID, firstSeq uint64, at time.Time, payloads ...event.Payload) []*event.Event {
	t.Helper()
	out := make([]*event.Event, 0, len(payloads))
	for i, p := range payloads {
		ev, err := event.New(txID, firstSeq+uint64(i), p, at)
		if err != nil {
			t.Fatalf("event.New: %v", err)
		}
		out = append(out, ev)
	}
	return out
}
