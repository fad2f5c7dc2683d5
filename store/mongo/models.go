package mongo

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

// settingsDocID is the _id of the single settings document.
const settingsDocID = "settings"

// ==================== Settings model ====================

type settingsModel struct {
	grove.BaseModel `grove:"table:membership_settings" bson:"-"`

	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Symbol    string    `bson:"symbol"`
	MaxSupply int64     `bson:"max_supply"`
	Admin     string    `bson:"admin"`
	Currency  string    `bson:"currency"`
	BaseURI   string    `bson:"base_uri"`
	EventSeq  int64     `bson:"event_seq"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toSettingsModel(s *mstore.Settings) *settingsModel {
	return &settingsModel{
		ID:        settingsDocID,
		Name:      s.Name,
		Symbol:    s.Symbol,
		MaxSupply: int64(s.MaxSupply),
		Admin:     string(s.Admin),
		Currency:  s.Currency,
		BaseURI:   s.BaseURI,
		EventSeq:  int64(s.EventSeq),
		UpdatedAt: s.UpdatedAt,
	}
}

func fromSettingsModel(m *settingsModel) *mstore.Settings {
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

type moneyModel struct {
	Amount   string `bson:"amount"`
	Currency string `bson:"currency"`
}

type tierModel struct {
	grove.BaseModel `grove:"table:membership_tiers" bson:"-"`

	ID              int64      `bson:"_id"`
	Price           moneyModel `bson:"price"`
	DurationSeconds int64      `bson:"duration_seconds"`
	Active          bool       `bson:"active"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toTierModel(t *tier.Tier) *tierModel {
	return &tierModel{
		ID: int64(t.ID),
		Price: moneyModel{
			Amount:   strconv.FormatUint(t.Price.Amount, 10),
			Currency: t.Price.Currency,
		},
		DurationSeconds: int64(t.DurationSeconds()),
		Active:          t.Active,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func fromTierModel(m *tierModel) (*tier.Tier, error) {
	amount, err := types.ParseAmount(m.Price.Amount)
	if err != nil {
		return nil, fmt.Errorf("tier %d: %w", m.ID, err)
	}
	return &tier.Tier{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       uint64(m.ID),
		Price:    types.Units(amount, m.Price.Currency),
		Duration: time.Duration(m.DurationSeconds) * time.Second,
		Active:   m.Active,
	}, nil
}

// ==================== Token model ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:membership_tokens" bson:"-"`

	ID        int64     `bson:"_id"`
	Owner     string    `bson:"owner"`
	TierID    int64     `bson:"tier_id"`
	Approved  string    `bson:"approved"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toTokenModel(rec *mstore.TokenRecord) *tokenModel {
	t := rec.Token
	return &tokenModel{
		ID:        int64(t.ID),
		Owner:     string(t.Owner),
		TierID:    int64(t.TierID),
		Approved:  string(t.Approved),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) *mstore.TokenRecord {
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

type eventModel struct {
	grove.BaseModel `grove:"table:membership_events" bson:"-"`

	Seq           int64     `bson:"_id"`
	ID            string    `bson:"event_id"`
	TransactionID string    `bson:"transaction_id"`
	Type          string    `bson:"type"`
	TokenID       *int64    `bson:"token_id,omitempty"`
	TierID        *int64    `bson:"tier_id,omitempty"`
	Actor         string    `bson:"actor"`
	Payload       string    `bson:"payload"`
	OccurredAt    time.Time `bson:"occurred_at"`
}

func toEventModel(ev *event.Event) *eventModel {
	return &eventModel{
		Seq:           int64(ev.Seq),
		ID:            ev.ID.String(),
		TransactionID: ev.TransactionID.String(),
		Type:          string(ev.Type),
		TokenID:       toNullableID(ev.TokenID),
		TierID:        toNullableID(ev.TierID),
		Actor:         string(ev.Actor),
		Payload:       string(ev.Payload),
		OccurredAt:    ev.OccurredAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
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
