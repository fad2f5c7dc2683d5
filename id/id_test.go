package id_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/xraph/membership/id"
)

func TestConstructorsAndParsers(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		prefix  string
	}{
		{"EventID", id.NewEventID, id.ParseEventID, "evt_"},
		{"TransactionID", id.NewTransactionID, id.ParseTransactionID, "txn_"},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID, "pay_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}

			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseEventID(id.NewPaymentID().String()); err == nil {
		t.Error("ParseEventID accepted a pay_ id")
	}
	if _, err := id.ParsePaymentID(id.NewTransactionID().String()); err == nil {
		t.Error("ParsePaymentID accepted a txn_ id")
	}
	if _, err := id.ParseTransactionID(id.NewEventID().String()); err == nil {
		t.Error("ParseTransactionID accepted an evt_ id")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("expected empty string and prefix, got %q / %q", i.String(), i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewEventID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil || !empty.IsNil() {
		t.Errorf("expected nil ID from empty text, got %q (%v)", empty.String(), err)
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewPaymentID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	if val, _ := nilID.Value(); val != nil {
		t.Errorf("expected NULL for nil ID, got %v", val)
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}

	if err := fromBytes.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestEventIDsSortByCreation(t *testing.T) {
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, id.NewEventID().String())
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("expected K-sortable ids, got %v", ids)
	}
}
