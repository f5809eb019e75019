package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitPublisher implements the Publisher interface for RabbitMQ. It declares
// a durable exchange on connect and, when a queue name is configured, binds a
// durable queue so messages survive until a consumer appears.
type rabbitPublisher struct {
	id         string
	typ        string
	channel    *amqp.Channel
	conn       *amqp.Connection
	exchange   string
	routingKey string
	log        Logger
}

// newRabbitPublisher connects to the broker and sets up the topology.
func newRabbitPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.RabbitMQ == nil {
		return nil, fmt.Errorf("publisher %q missing rabbitmq configuration", cfg.ID)
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.RabbitMQ.Exchange, rabbitDefaultExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if cfg.RabbitMQ.QueueName != "" {
		q, err := ch.QueueDeclare(cfg.RabbitMQ.QueueName, true, false, false, false, nil)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, cfg.RabbitMQ.RoutingKey, cfg.RabbitMQ.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue: %w", err)
		}
	}

	return &rabbitPublisher{
		id:         cfg.ID,
		typ:        TypeRabbitMQ,
		channel:    ch,
		conn:       conn,
		exchange:   cfg.RabbitMQ.Exchange,
		routingKey: cfg.RabbitMQ.RoutingKey,
		log:        ensureLogger(log),
	}, nil
}

func (r *rabbitPublisher) ID() string   { return r.id }
func (r *rabbitPublisher) Type() string { return r.typ }

// Publish sends the event as a persistent JSON message.
func (r *rabbitPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         payload,
		Timestamp:    time.Now(),
	})
	if err != nil {
		r.log.ErrorObj("rabbitmq publisher send failed", "publisher_rabbitmq_error", map[string]any{
			"exchange": r.exchange,
			"error":    err.Error(),
		})
		return fmt.Errorf("publish message to rabbitmq: %w", err)
	}
	r.log.DebugObj("rabbitmq publisher delivered event", "publisher_rabbitmq_delivery", map[string]any{
		"source_slug": evt.SourceSlug,
	})
	return nil
}

// Close closes the channel and connection.
func (r *rabbitPublisher) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
