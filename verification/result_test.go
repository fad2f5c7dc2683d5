package verification

import (
	"testing"
	"time"
)

func TestSoonest(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var empty Result
	if _, ok := empty.Soonest(); ok {
		t.Error("empty result has no soonest token")
	}

	r := Result{ActiveTokens: []TokenStatus{
		{TokenID: 1, ExpiresAt: now.Add(3 * time.Hour)},
		{TokenID: 2, ExpiresAt: now.Add(time.Hour)},
		{TokenID: 3, ExpiresAt: now.Add(2 * time.Hour)},
	}}
	got, ok := r.Soonest()
	if !ok || got.TokenID != 2 {
		t.Errorf("Soonest = %+v, %v", got, ok)
	}
}
