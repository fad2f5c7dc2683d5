package event

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/types"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewAndDecode(t *testing.T) {
	buyer := types.NewAddress("0xb0b")
	p := &Purchased{
		TokenID:   3,
		Buyer:     buyer,
		TierID:    1,
		ExpiresAt: at.Add(time.Hour),
		Amount:    types.Wei(10),
		PaymentID: id.NewPaymentID(),
	}

	ev, err := New(id.NewTransactionID(), 7, p, at)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ev.Type != TypePurchased || ev.Seq != 7 {
		t.Errorf("header = %s/%d", ev.Type, ev.Seq)
	}
	if ev.TokenID == nil || *ev.TokenID != 3 || ev.TierID == nil || *ev.TierID != 1 {
		t.Errorf("subjects = %v / %v", ev.TokenID, ev.TierID)
	}
	if !ev.Actor.Equal(buyer) {
		t.Errorf("Actor = %q", ev.Actor)
	}
	if !strings.HasPrefix(ev.ID.String(), "evt_") {
		t.Errorf("ID = %q", ev.ID)
	}

	decoded, err := ev.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(*Purchased)
	if !ok {
		t.Fatalf("Decode returned %T", decoded)
	}
	if got.TokenID != 3 || !got.ExpiresAt.Equal(p.ExpiresAt) || got.PaymentID.String() != p.PaymentID.String() {
		t.Errorf("decoded = %+v", got)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	ev := &Event{Type: "token.burned", Payload: []byte(`{}`)}
	if _, err := ev.Decode(); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestListOptsMatches(t *testing.T) {
	alice := types.NewAddress("0xa11ce")
	renew, _ := New(id.NewTransactionID(), 5, &Renewed{TokenID: 2, TierID: 0, Caller: alice}, at)
	base, _ := New(id.NewTransactionID(), 6, &BaseURIUpdated{Admin: alice, BaseURI: "ipfs://x/"}, at)

	two, nine := uint64(2), uint64(9)
	tests := []struct {
		name string
		opts ListOpts
		ev   *Event
		want bool
	}{
		{"empty filter", ListOpts{}, renew, true},
		{"type match", ListOpts{Type: TypeRenewed}, renew, true},
		{"type mismatch", ListOpts{Type: TypePurchased}, renew, false},
		{"token match", ListOpts{TokenID: &two}, renew, true},
		{"token mismatch", ListOpts{TokenID: &nine}, renew, false},
		{"token filter on tokenless event", ListOpts{TokenID: &two}, base, false},
		{"actor", ListOpts{Actor: types.Address("0xA11CE")}, base, true},
		{"after seq", ListOpts{AfterSeq: 5}, renew, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClone(t *testing.T) {
	ev, _ := New(id.NewTransactionID(), 1, &Approval{TokenID: 4}, at)
	c := ev.Clone()
	*c.TokenID = 99
	c.Payload[0] = 'x'
	if *ev.TokenID != 4 || ev.Payload[0] != '{' {
		t.Error("Clone shares memory with the original")
	}
}
