// Package sqlstore holds the grove row models and conversions shared by the
// SQL-backed stores (postgres, sqlite).
package sqlstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/id"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

// SettingsRowID is the primary key of the single settings row.
const SettingsRowID = 1

// Amounts are stored as decimal text because unsigned 64-bit values do not
// fit a signed BIGINT. Ids and counters are bounded by the supply cap and
// fit comfortably.

// ==================== Settings model ====================

type SettingsModel struct {
	grove.BaseModel `grove:"table:membership_settings"`

	ID        int64     `grove:"id,pk"`
	Name      string    `grove:"name,notnull"`
	Symbol    string    `grove:"symbol,notnull"`
	MaxSupply int64     `grove:"max_supply,notnull"`
	Admin     string    `grove:"admin,notnull"`
	Currency  string    `grove:"currency,notnull"`
	BaseURI   string    `grove:"base_uri,notnull"`
	EventSeq  int64     `grove:"event_seq,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}

func ToSettingsModel(s *mstore.Settings) *SettingsModel {
	return &SettingsModel{
		ID:        SettingsRowID,
		Name:      s.Name,
		Symbol:    s.Symbol,
		MaxSupply: int64(s.MaxSupply),
		Admin:     string(s.Admin),
		Currency:  s.Currency,
		BaseURI:   s.BaseURI,
		EventSeq:  int64(s.EventSeq),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func FromSettingsModel(m *SettingsModel) *mstore.Settings {
	return &mstore.Settings{
		Name:      m.Name,
		Symbol:    m.Symbol,
		MaxSupply: uint64(m.MaxSupply),
		Admin:     types.Address(m.Admin),
		Currency:  m.Currency,
		BaseURI:   m.BaseURI,
		EventSeq:  uint64(m.EventSeq),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// ==================== Tier model ====================

type TierModel struct {
	grove.BaseModel `grove:"table:membership_tiers"`

	ID              int64     `grove:"id,pk"`
	PriceAmount     string    `grove:"price_amount,notnull"`
	PriceCurrency   string    `grove:"price_currency,notnull"`
	DurationSeconds int64     `grove:"duration_seconds,notnull"`
	Active          bool      `grove:"active,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func ToTierModel(t *tier.Tier) *TierModel {
	return &TierModel{
		ID:              int64(t.ID),
		PriceAmount:     strconv.FormatUint(t.Price.Amount, 10),
		PriceCurrency:   t.Price.Currency,
		DurationSeconds: int64(t.DurationSeconds()),
		Active:          t.Active,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func FromTierModel(m *TierModel) (*tier.Tier, error) {
	amount, err := types.ParseAmount(m.PriceAmount)
	if err != nil {
		return nil, fmt.Errorf("tier %d: %w", m.ID, err)
	}
	return &tier.Tier{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       uint64(m.ID),
		Price:    types.Units(amount, m.PriceCurrency),
		Duration: time.Duration(m.DurationSeconds) * time.Second,
		Active:   m.Active,
	}, nil
}

// ==================== Token model ====================

type TokenModel struct {
	grove.BaseModel `grove:"table:membership_tokens"`

	ID        int64     `grove:"id,pk"`
	Owner     string    `grove:"owner,notnull"`
	TierID    int64     `grove:"tier_id,notnull"`
	Approved  string    `grove:"approved,notnull"`
	ExpiresAt time.Time `grove:"expires_at,notnull"`
	CreatedAt time.Time `grove:"created_at,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}

func ToTokenModel(rec *mstore.TokenRecord) *TokenModel {
	t := rec.Token
	return &TokenModel{
		ID:        int64(t.ID),
		Owner:     string(t.Owner),
		TierID:    int64(t.TierID),
		Approved:  string(t.Approved),
		ExpiresAt: rec.ExpiresAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func FromTokenModel(m *TokenModel) *mstore.TokenRecord {
	return &mstore.TokenRecord{
		Token: &token.Token{
			Entity: types.Entity{
				CreatedAt: m.CreatedAt.UTC(),
				UpdatedAt: m.UpdatedAt.UTC(),
			},
			ID:       uint64(m.ID),
			Owner:    types.Address(m.Owner),
			TierID:   uint64(m.TierID),
			Approved: types.Address(m.Approved),
		},
		ExpiresAt: m.ExpiresAt.UTC(),
	}
}

// ==================== Event model ====================

type EventModel struct {
	grove.BaseModel `grove:"table:membership_events"`

	Seq           int64     `grove:"seq,pk"`
	ID            string    `grove:"id,notnull"`
	TransactionID string    `grove:"transaction_id,notnull"`
	Type          string    `grove:"type,notnull"`
	TokenID       *int64    `grove:"token_id"`
	TierID        *int64    `grove:"tier_id"`
	Actor         string    `grove:"actor,notnull"`
	Payload       string    `grove:"payload,notnull"`
	OccurredAt    time.Time `grove:"occurred_at,notnull"`
}

func ToEventModel(ev *event.Event) *EventModel {
	return &EventModel{
		Seq:           int64(ev.Seq),
		ID:            ev.ID.String(),
		TransactionID: ev.TransactionID.String(),
		Type:          string(ev.Type),
		TokenID:       toNullableID(ev.TokenID),
		TierID:        toNullableID(ev.TierID),
		Actor:         string(ev.Actor),
		Payload:       string(ev.Payload),
		OccurredAt:    ev.OccurredAt.UTC(),
	}
}

func FromEventModel(m *EventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", m.Seq, err)
	}
	txID, err := id.ParseTransactionID(m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", m.Seq, err)
	}
	return &event.Event{
		ID:            evtID,
		Seq:           uint64(m.Seq),
		TransactionID: txID,
		Type:          event.Type(m.Type),
		TokenID:       fromNullableID(m.TokenID),
		TierID:        fromNullableID(m.TierID),
		Actor:         types.Address(m.Actor),
		Payload:       []byte(m.Payload),
		OccurredAt:    m.OccurredAt.UTC(),
	}, nil
}

func toNullableID(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func fromNullableID(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	n := uint64(*v)
	return &n
}
