// Package membership sells time-limited access credentials ("membership
// tokens") against priced tiers, under a global supply cap.
//
// Membership is designed as a library, not a service. Import it directly
// into your Go application, or run cmd/membershipd for an HTTP API. It
// provides:
//
//   - Admin-managed tiers with an exact price and a duration
//   - Capped, sequential minting on purchase
//   - Stacking renewals by the owner or a single approved operator
//   - Membership checks for third-party verifiers
//   - Atomic transactions persisted to Postgres, SQLite, MongoDB or a file
//   - Plugins for metrics, audit trails, Kafka and RabbitMQ publishing
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/membership"
//	    "github.com/xraph/membership/store/memory"
//	)
//
//	eng, err := membership.New(membership.Config{
//	    Name:      "Altura Pass",
//	    Symbol:    "ALT",
//	    BaseURI:   "ipfs://cid/",
//	    MaxSupply: 100,
//	    Admin:     "0xad",
//	}, memory.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Tiers are created by the admin and never removed; deactivating a tier
// stops new purchases but not renewals:
//
//	tierID, err := eng.CreateTier(ctx, admin, membership.Wei(1e16), 7*24*time.Hour)
//
// Purchases require the exact tier price and mint the next token id:
//
//	tokenID, err := eng.Purchase(ctx, tierID, membership.Wei(1e16), buyer)
//
// Renewals add the tier duration on top of any unused time:
//
//	newExpiry, err := eng.Renew(ctx, tokenID, membership.Wei(1e16), buyer)
//
// Verifiers only read:
//
//	if eng.IsMember(ctx, addr) {
//	    // grant the discount
//	}
//
// # Transactions
//
// Mutating calls are serialized behind a single writer. Each one stages
// its changes on a private copy of the state, commits them to the store in
// one atomic write and only then publishes the new state to readers.
// A rejected or failed call leaves no trace. Errors are sentinels that can
// be tested with errors.Is: ErrUnauthorized, ErrNotFound, ErrInactiveTier,
// ErrWrongPrice and ErrSupplyExhausted.
//
// # TypeID
//
// Committed events, transactions and payment receipts carry TypeIDs:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Event ID
//	txn_01h2xcejqtf2nbrexx3vqjhp41  // Transaction ID
//	pay_01h455vb4pex5vsknk084sn02q  // Payment receipt
//
// Tier and token ids are dense integers starting at zero.
package membership
