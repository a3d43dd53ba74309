// Package mq adapts RabbitMQ to the publisher and worker contracts.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotelbooking/internal/worker"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// HeaderRetryCount carries how many times a message was already retried.
	HeaderRetryCount = "x-retry-count"
	// HeaderRoutingKey keeps the event routing key on retry copies, which are
	// routed by queue name.
	HeaderRoutingKey = "x-original-routing-key"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes persistent JSON messages to a topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       channel
	exchange string
	// retryQueue receives Requeue copies through the default exchange.
	retryQueue string
	now        func() time.Time
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

// Publishing builds the message properties shared by every integration event.
func Publishing(routingKey string, body []byte, at time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         routingKey,
		Timestamp:    at.UTC(),
		Body:         body,
	}
}

func (p *Publisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}
	return p.publish(ctx, routingKey, Publishing(routingKey, b, p.now()))
}

// RetryTo sets the queue Requeue delivers to.
func (p *Publisher) RetryTo(queue string) *Publisher {
	p.retryQueue = queue
	return p
}

// Requeue republishes msg with the given retry count straight to the retry
// queue, so other consumers bound to the event exchange never see the copy.
// The message id is kept so consumers can correlate attempts.
func (p *Publisher) Requeue(ctx context.Context, msg worker.Message, retryCount int) error {
	if p.retryQueue == "" {
		return errors.New("requeue: no retry queue configured")
	}
	pub := Publishing(msg.RoutingKey(), msg.Body(), p.now())
	if id := msg.MessageID(); id != "" {
		pub.MessageId = id
	}
	pub.Headers = amqp.Table{
		HeaderRetryCount: int32(retryCount),
		HeaderRoutingKey: msg.RoutingKey(),
	}
	return p.publishTo(ctx, "", p.retryQueue, pub)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	return p.publishTo(ctx, p.exchange, routingKey, msg)
}

// amqp channels are not safe for concurrent publishing.
func (p *Publisher) publishTo(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
