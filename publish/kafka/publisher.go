// Package kafka publishes committed membership events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	skafka "github.com/segmentio/kafka-go"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/publish"
)

var (
	_ plugin.Plugin           = (*Publisher)(nil)
	_ plugin.OnEventCommitted = (*Publisher)(nil)
	_ plugin.OnShutdown       = (*Publisher)(nil)
)

// Writer defines the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher writes every committed event to Kafka.
type Publisher struct {
	writer Writer
	logger *slog.Logger
}

// New creates a Publisher writing to topic on the given brokers.
func New(topic string, brokers ...string) *Publisher {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewWithWriter(w)
}

// NewWithWriter allows injecting a test writer.
func NewWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w, logger: slog.Default()}
}

// WithLogger sets the logger.
func (p *Publisher) WithLogger(logger *slog.Logger) *Publisher {
	p.logger = logger
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "publish-kafka" }

// OnEventCommitted implements plugin.OnEventCommitted.
func (p *Publisher) OnEventCommitted(ctx context.Context, ev *event.Event) error {
	body, err := publish.Encode(ev)
	if err != nil {
		return fmt.Errorf("kafka: encode event %d: %w", ev.Seq, err)
	}

	msg := skafka.Message{
		Key:   []byte(publish.Key(ev)),
		Value: body,
		Headers: []skafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
			{Key: "event-id", Value: []byte(ev.ID.String())},
		},
		Time: ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka write failed",
			"event_seq", ev.Seq,
			"event_type", ev.Type,
			"error", err,
		)
		return err
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.writer.Close()
}
