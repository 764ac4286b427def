package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AMQPPublisher publishes envelopes to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, ch, err := dialExchange(url, exchange)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, e Envelope) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, e.Event, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Body:         b,
	})
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	return closeAll(p.ch, p.conn)
}

// AMQPConsumer reads envelopes from a queue bound to the exchange.
type AMQPConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPConsumer declares queue and binds it to every key on exchange.
func NewAMQPConsumer(url, exchange, queue string, keys []string) (*AMQPConsumer, error) {
	conn, ch, err := dialExchange(url, exchange)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = closeAll(ch, conn)
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			_ = closeAll(ch, conn)
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = closeAll(ch, conn)
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: q.Name}, nil
}

// Run consumes until ctx is done or the channel closes.
func (c *AMQPConsumer) Run(ctx context.Context, h Handler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			dispatch(ctx, d, h)
		}
	}
}

// Close closes the channel and connection.
func (c *AMQPConsumer) Close() error {
	return closeAll(c.ch, c.conn)
}

// dispatch decodes one delivery and settles it: Ack on success, Nack with
// requeue on handler error, Nack without requeue on a malformed body.
func dispatch(ctx context.Context, d amqp.Delivery, h Handler) {
	var e Envelope
	if err := json.Unmarshal(d.Body, &e); err != nil || e.ID == "" {
		log.Warn().Str("component", "amqp").Str("routing_key", d.RoutingKey).Msg("drop malformed event")
		_ = d.Nack(false, false)
		return
	}
	if e.Event == "" {
		e.Event = d.RoutingKey
	}
	if err := h(ctx, e); err != nil {
		log.Error().Err(err).Str("component", "amqp").Str("event", e.Event).Str("event_id", e.ID).Msg("handle event; requeue")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func dialExchange(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = closeAll(ch, conn)
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

func closeAll(ch *amqp.Channel, conn *amqp.Connection) error {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
