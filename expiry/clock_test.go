package expiry

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
)

const week = 7 * 24 * time.Hour

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestExtendFromMint(t *testing.T) {
	c := NewClock()
	got := c.Extend(0, week, epoch.Add(500*time.Millisecond))
	if want := epoch.Add(week); !got.Equal(want) {
		t.Errorf("Extend = %v, want %v", got, want)
	}
}

func TestExtendStacksUnusedTime(t *testing.T) {
	c := NewClock()
	first := c.Extend(0, week, epoch)

	renewed := c.Extend(0, week, epoch.Add(30*time.Second))
	if want := first.Add(week); !renewed.Equal(want) {
		t.Errorf("renewal = %v, want stacked %v", renewed, want)
	}
}

func TestExtendAfterLapseRestartsFromNow(t *testing.T) {
	c := NewClock()
	c.Extend(0, time.Hour, epoch)

	later := epoch.Add(48 * time.Hour)
	got := c.Extend(0, time.Hour, later)
	if want := later.Add(time.Hour); !got.Equal(want) {
		t.Errorf("Extend after lapse = %v, want %v", got, want)
	}
}

func TestIsActiveBoundary(t *testing.T) {
	c := NewClock()
	exp := c.Extend(0, time.Hour, epoch)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before", exp.Add(-time.Second), true},
		{"at expiry", exp, false},
		{"after", exp.Add(time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.IsActive(0, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsActive = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := c.IsActive(1, epoch); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown token: expected ErrNotFound, got %v", err)
	}
}

func TestIsMember(t *testing.T) {
	alice := types.NewAddress("0xa11ce")
	bob := types.NewAddress("0xb0b")

	l := token.NewLedger(10)
	c := NewClock()
	for i, owner := range []types.Address{alice, bob} {
		tok, err := l.Mint(owner, 0, epoch)
		if err != nil {
			t.Fatal(err)
		}
		c.Extend(tok.ID, time.Duration(i+1)*time.Hour, epoch)
	}

	now := epoch.Add(90 * time.Minute)
	if c.IsMember(l, alice, now) {
		t.Error("alice's only token has expired")
	}
	if !c.IsMember(l, bob, now) {
		t.Error("bob holds an active token")
	}
	if c.IsMember(l, types.NoAddress, now) {
		t.Error("zero address is never a member")
	}
	if ids := c.ActiveTokens(l, bob, now); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ActiveTokens(bob) = %v", ids)
	}
}

func TestCloneIsolation(t *testing.T) {
	c := NewClock()
	c.Extend(0, time.Hour, epoch)

	staged := c.Clone()
	staged.Extend(0, time.Hour, epoch)

	if got, _ := c.ExpirationOf(0); !got.Equal(epoch.Add(time.Hour)) {
		t.Errorf("original changed to %v", got)
	}
}
