package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/publish/kafka"
	"github.com/xraph/membership/types"
)

type fakeWriter struct {
	msgs   []skafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func purchasedEvent(t *testing.T) *event.Event {
	t.Helper()
	ev, err := event.New(id.NewTransactionID(), 7, &event.Purchased{
		TokenID: 3,
		Buyer:   types.NewAddress("0xb0b"),
		TierID:  1,
		Amount:  types.Wei(10),
	}, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestPublishesCommittedEvent(t *testing.T) {
	w := &fakeWriter{}
	p := kafka.NewWithWriter(w)

	ev := purchasedEvent(t)
	if err := p.OnEventCommitted(context.Background(), ev); err != nil {
		t.Fatalf("OnEventCommitted: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "token-3" {
		t.Errorf("key = %q", msg.Key)
	}
	var decoded event.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not an event: %v", err)
	}
	if decoded.Seq != 7 || decoded.Type != event.TypePurchased {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != string(event.TypePurchased) {
		t.Errorf("headers = %+v", msg.Headers)
	}
}

func TestWriteErrorIsReturned(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := kafka.NewWithWriter(w)
	if err := p.OnEventCommitted(context.Background(), purchasedEvent(t)); err == nil {
		t.Error("expected error")
	}
}

func TestShutdownClosesWriter(t *testing.T) {
	w := &fakeWriter{}
	if err := kafka.NewWithWriter(w).OnShutdown(context.Background()); err != nil || !w.closed {
		t.Errorf("closed = %v, err = %v", w.closed, err)
	}
}
