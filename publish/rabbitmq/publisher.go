// Package rabbitmq publishes committed membership events to a RabbitMQ
// topic exchange.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/publish"
)

var (
	_ plugin.Plugin           = (*Publisher)(nil)
	_ plugin.OnEventCommitted = (*Publisher)(nil)
	_ plugin.OnShutdown       = (*Publisher)(nil)
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends every committed event to an exchange, routed by event
// type (for example "token.purchased").
type Publisher struct {
	conn     io.Closer
	ch       Channel
	exchange string
	logger   *slog.Logger
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	p, err := NewWithChannel(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewWithChannel declares the exchange on ch. Tests inject a fake channel.
func NewWithChannel(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, logger: slog.Default()}, nil
}

// WithLogger sets the logger.
func (p *Publisher) WithLogger(logger *slog.Logger) *Publisher {
	p.logger = logger
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "publish-rabbitmq" }

// OnEventCommitted implements plugin.OnEventCommitted.
func (p *Publisher) OnEventCommitted(ctx context.Context, ev *event.Event) error {
	body, err := publish.Encode(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode event %d: %w", ev.Seq, err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,      // exchange
		string(ev.Type), // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     ev.ID.String(),
			CorrelationId: ev.TransactionID.String(),
			Timestamp:     ev.OccurredAt,
			Type:          string(ev.Type),
			Headers:       amqp.Table{"partition_key": publish.Key(ev)},
			Body:          body,
		},
	)
	if err != nil {
		p.logger.Warn("rabbitmq publish failed",
			"event_seq", ev.Seq,
			"event_type", ev.Type,
			"error", err,
		)
		return err
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown. The connection is closed even
// when closing the channel fails.
func (p *Publisher) OnShutdown(_ context.Context) error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
