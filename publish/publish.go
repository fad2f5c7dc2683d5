// Package publish holds plugins that forward committed membership events to
// message brokers. Each event is published once, after its transaction
// commits, keyed by token id when it has one.
package publish

import (
	"encoding/json"
	"strconv"

	"github.com/xraph/membership/event"
)

// Key returns the partition/routing key of ev: the token id, else the tier
// id, else the event type.
func Key(ev *event.Event) string {
	switch {
	case ev.TokenID != nil:
		return "token-" + strconv.FormatUint(*ev.TokenID, 10)
	case ev.TierID != nil:
		return "tier-" + strconv.FormatUint(*ev.TierID, 10)
	default:
		return string(ev.Type)
	}
}

// Encode returns the wire form of ev.
func Encode(ev *event.Event) ([]byte, error) {
	return json.Marshal(ev)
}
