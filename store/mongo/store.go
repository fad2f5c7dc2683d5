// Package mongo implements store.Store on MongoDB. Commits use multi-document
// transactions, which require a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
)

// Collection name constants.
const (
	colSettings = "membership_settings"
	colTiers    = "membership_tiers"
	colTokens   = "membership_tokens"
	colEvents   = "membership_events"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	closed atomic.Bool
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, mongodriver.WithDatabase(database)); err != nil {
		return nil, fmt.Errorf("membership/mongo: connect: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("membership/mongo: connect: %w", err)
	}
	return New(db), nil
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Database returns the underlying mongo database.
func (s *Store) Database() *mongo.Database { return s.mdb.Database() }

// Migrate creates indexes for all membership collections.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("membership/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Load reads the committed state.
func (s *Store) Load(ctx context.Context) (*mstore.Snapshot, error) {
	if s.closed.Load() {
		return nil, membership.ErrStoreClosed
	}

	snap := &mstore.Snapshot{}

	var settings settingsModel
	err := s.mdb.NewFind(&settings).
		Filter(bson.M{"_id": settingsDocID}).
		Scan(ctx)
	switch {
	case isNoDocuments(err):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("membership/mongo: load settings: %w", err)
	}
	snap.Settings = fromSettingsModel(&settings)

	byID := bson.D{{Key: "_id", Value: 1}}

	var tiers []tierModel
	if err := s.mdb.NewFind(&tiers).Sort(byID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/mongo: load tiers: %w", err)
	}
	snap.Tiers = make([]*tier.Tier, 0, len(tiers))
	for i := range tiers {
		t, err := fromTierModel(&tiers[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", membership.ErrStateCorrupt, err)
		}
		snap.Tiers = append(snap.Tiers, t)
	}

	var tokens []tokenModel
	if err := s.mdb.NewFind(&tokens).Sort(byID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/mongo: load tokens: %w", err)
	}
	snap.Tokens = make([]*mstore.TokenRecord, 0, len(tokens))
	for i := range tokens {
		snap.Tokens = append(snap.Tokens, fromTokenModel(&tokens[i]))
	}
	return snap, nil
}

// Commit writes the change set in one multi-document transaction.
func (s *Store) Commit(ctx context.Context, cs *mstore.Changeset) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}

	sess, err := s.mdb.Client().StartSession()
	if err != nil {
		return fmt.Errorf("membership/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	upsert := options.Replace().SetUpsert(true)
	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		if _, err := s.mdb.Collection(colSettings).ReplaceOne(ctx,
			bson.M{"_id": settingsDocID}, toSettingsModel(&cs.Settings), upsert); err != nil {
			return nil, fmt.Errorf("upsert settings: %w", err)
		}

		for _, t := range cs.Tiers {
			if _, err := s.mdb.Collection(colTiers).ReplaceOne(ctx,
				bson.M{"_id": int64(t.ID)}, toTierModel(t), upsert); err != nil {
				return nil, fmt.Errorf("upsert tier %d: %w", t.ID, err)
			}
		}

		for _, rec := range cs.Tokens {
			if _, err := s.mdb.Collection(colTokens).ReplaceOne(ctx,
				bson.M{"_id": int64(rec.Token.ID)}, toTokenModel(rec), upsert); err != nil {
				return nil, fmt.Errorf("upsert token %d: %w", rec.Token.ID, err)
			}
		}

		if len(cs.Events) > 0 {
			docs := make([]any, len(cs.Events))
			for i, ev := range cs.Events {
				docs[i] = toEventModel(ev)
			}
			if _, err := s.mdb.Collection(colEvents).InsertMany(ctx, docs); err != nil {
				return nil, fmt.Errorf("insert events: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("membership/mongo: commit %s: %w", cs.TransactionID, err)
	}
	return nil
}

// ListEvents reads the event log in sequence order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	if s.closed.Load() {
		return nil, membership.ErrStoreClosed
	}

	filter := bson.M{}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.TokenID != nil {
		filter["token_id"] = int64(*opts.TokenID)
	}
	if opts.TierID != nil {
		filter["tier_id"] = int64(*opts.TierID)
	}
	if !opts.Actor.IsZero() {
		filter["actor"] = string(opts.Actor.Normalize())
	}
	if opts.AfterSeq > 0 {
		filter["_id"] = bson.M{"$gt": int64(opts.AfterSeq)}
	}

	var models []eventModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/mongo: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		ev, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = ev
	}
	return result, nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all membership collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
		},
	}
}
