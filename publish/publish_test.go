package publish_test

import (
	"testing"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/publish"
)

func TestKey(t *testing.T) {
	tokenID, tierID := uint64(9), uint64(2)
	tests := []struct {
		name string
		ev   *event.Event
		want string
	}{
		{"token", &event.Event{Type: event.TypeRenewed, TokenID: &tokenID, TierID: &tierID}, "token-9"},
		{"tier", &event.Event{Type: event.TypeTierUpdated, TierID: &tierID}, "tier-2"},
		{"settings", &event.Event{Type: event.TypeBaseURIUpdated}, "settings.base_uri_updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := publish.Key(tt.ev); got != tt.want {
				t.Errorf("Key = %q, want %q", got, tt.want)
			}
		})
	}
}
