package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"scholar_notification_pipeline/internal/domain/notification"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Client is the RabbitMQ task queue: a direct exchange, a durable work
// queue, and a wait queue that dead-letters back into the work queue to
// implement delayed reschedules via per-message TTL.
//
// Per-message TTL expires only at the head of the wait queue; that is
// acceptable here because all reschedule delays use one of two fixed
// windows.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
	logger   *logrus.Logger
}

func New(url, exchange, queueName string, logger *logrus.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Client{conn: conn, ch: ch, exchange: exchange, queue: queueName, logger: logger}
	if err := c.declareTopology(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) declareTopology() error {
	if err := c.ch.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare work queue: %w", err)
	}
	if err := c.ch.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind work queue: %w", err)
	}

	waitQueue := c.waitQueueName()
	if _, err := c.ch.QueueDeclare(waitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    c.exchange,
		"x-dead-letter-routing-key": c.queue,
	}); err != nil {
		return fmt.Errorf("failed to declare wait queue: %w", err)
	}
	if err := c.ch.QueueBind(waitQueue, waitQueue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind wait queue: %w", err)
	}

	return nil
}

func (c *Client) waitQueueName() string {
	return c.queue + ".wait"
}

// Submit publishes a task, routing through the wait queue when a delay
// is requested.
func (c *Client) Submit(ctx context.Context, task notification.Task, delay time.Duration) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	routingKey := c.queue
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if delay > 0 {
		routingKey = c.waitQueueName()
		pub.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	if err := c.ch.PublishWithContext(ctx, c.exchange, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

// Consume delivers tasks to the handler one at a time until the context
// is cancelled. Malformed messages are logged and dropped; handler
// outcomes never reject a delivery, since the retry policy re-publishes
// instead of nacking.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, task notification.Task)) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var task notification.Task
			if err := json.Unmarshal(d.Body, &task); err != nil {
				c.logger.Errorf("Dropping malformed task message: %v", err)
				if err := d.Ack(false); err != nil {
					c.logger.Errorf("Failed to ack malformed message: %v", err)
				}
				continue
			}

			handler(ctx, task)

			if err := d.Ack(false); err != nil {
				c.logger.Errorf("Failed to ack task %s: %v", task.TaskID, err)
			}
		}
	}
}

func (c *Client) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
