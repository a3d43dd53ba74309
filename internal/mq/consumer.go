package mq

import (
	"context"
	"fmt"

	"hotelbooking/internal/worker"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerConfig struct {
	URL         string
	Exchange    string
	DLXExchange string
	Queue       string
	DLQueue     string
	Bindings    []string
	Prefetch    int
	Tag         string
}

// Consumer owns the notification queue topology: a durable queue bound to the
// event exchange, dead-lettering into DLXExchange/DLQueue.
type Consumer struct {
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	return &Consumer{cfg: cfg}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}
	c.conn, c.ch = conn, ch

	if err := c.declare(); err != nil {
		c.Close()
		return err
	}
	return nil
}

func (c *Consumer) declare() error {
	if err := c.ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s failed: %w", c.cfg.Exchange, err)
	}
	if err := c.ch.ExchangeDeclare(c.cfg.DLXExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx failed: %w", err)
	}
	if _, err := c.ch.QueueDeclare(c.cfg.DLQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq failed: %w", err)
	}
	if err := c.ch.QueueBind(c.cfg.DLQueue, "#", c.cfg.DLXExchange, false, nil); err != nil {
		return fmt.Errorf("bind dlq failed: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": c.cfg.DLXExchange}
	q, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}
	for _, key := range c.cfg.Bindings {
		if err := c.ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue to exchange=%s key=%s failed: %w", c.cfg.Exchange, key, err)
		}
	}

	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos failed: %w", err)
	}
	return nil
}

// Messages adapts the delivery stream to worker messages. The returned
// channel closes when ctx is done or the broker channel closes.
func (c *Consumer) Messages(ctx context.Context) (<-chan worker.Message, error) {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume failed: %w", err)
	}

	out := make(chan worker.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- delivery{d: d}:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

type delivery struct {
	d amqp.Delivery
}

// RoutingKey prefers the original event key carried by retry copies.
func (m delivery) RoutingKey() string {
	if key, ok := m.d.Headers[HeaderRoutingKey].(string); ok && key != "" {
		return key
	}
	return m.d.RoutingKey
}

func (m delivery) MessageID() string { return m.d.MessageId }
func (m delivery) Body() []byte      { return m.d.Body }
func (m delivery) RetryCount() int   { return RetryCount(m.d.Headers) }
func (m delivery) Ack() error        { return m.d.Ack(false) }
func (m delivery) Nack(requeue bool) error {
	return m.d.Nack(false, requeue)
}

// RetryCount reads the retry header, tolerating the integer types AMQP
// tables may decode to. Missing or malformed headers count as zero.
func RetryCount(headers amqp.Table) int {
	v, ok := headers[HeaderRetryCount]
	if !ok {
		return 0
	}
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return int(n)
}
