package tier

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/membership/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCreateAssignsDenseIDs(t *testing.T) {
	r := NewRegistry()
	for want := uint64(0); want < 3; want++ {
		tr, err := r.Create(types.Wei(want*10), time.Hour, epoch)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if tr.ID != want {
			t.Errorf("ID = %d, want %d", tr.ID, want)
		}
		if !tr.Active {
			t.Errorf("tier %d should start active", tr.ID)
		}
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestUpdateOverwritesAllFields(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create(types.Wei(100), time.Hour, epoch); err != nil {
		t.Fatal(err)
	}

	prev, next, err := r.Update(0, types.Wei(7), 2*time.Hour, false, epoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if prev.Price.Amount != 100 || !prev.Active {
		t.Errorf("prev = %+v, want original values", prev)
	}

	got, err := r.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price.Amount != 7 || got.Duration != 2*time.Hour || got.Active {
		t.Errorf("Get after Update = %+v", got)
	}
	if !got.UpdatedAt.Equal(epoch.Add(time.Minute)) || !got.CreatedAt.Equal(epoch) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if next.Price.Amount != got.Price.Amount {
		t.Errorf("next = %+v, stored = %+v", next, got)
	}
}

func TestUnknownTier(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get(0); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, _, err := r.Update(4, types.Wei(1), time.Second, true, epoch); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
}

func TestDurationValidation(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		wantErr  bool
	}{
		{"zero", 0, true},
		{"second", time.Second, false},
		{"week", 7 * 24 * time.Hour, false},
		{"negative", -time.Second, true},
		{"fractional", 1500 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry().Create(types.Wei(1), tt.duration, epoch)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Create(%v) error = %v, wantErr %v", tt.duration, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCloneIsolation(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create(types.Wei(1), time.Hour, epoch); err != nil {
		t.Fatal(err)
	}

	staged := r.Clone()
	if _, _, err := staged.Update(0, types.Wei(2), time.Hour, false, epoch); err != nil {
		t.Fatal(err)
	}
	if _, err := staged.Create(types.Wei(3), time.Hour, epoch); err != nil {
		t.Fatal(err)
	}

	orig, _ := r.Get(0)
	if orig.Price.Amount != 1 || !orig.Active {
		t.Errorf("original mutated through clone: %+v", orig)
	}
	if r.Count() != 1 {
		t.Errorf("original Count() = %d, want 1", r.Count())
	}
}

func TestRestore(t *testing.T) {
	r, err := Restore([]*Tier{{ID: 1}, {ID: 0}})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d", r.Count())
	}

	if _, err := Restore([]*Tier{{ID: 0}, {ID: 2}}); err == nil {
		t.Error("expected error for sparse ids")
	}
	if _, err := Restore([]*Tier{{ID: 0}, {ID: 0}}); err == nil {
		t.Error("expected error for duplicate ids")
	}
}
