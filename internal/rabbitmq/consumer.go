package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// RecordHandler processes one raw record taken off the queue. A returned
// error means the record should be retried.
type RecordHandler interface {
	HandleRecord(ctx context.Context, raw model.RawRecord) error
}

// Consumer consumes raw fee records from RabbitMQ
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	prefetch  int
	handler   RecordHandler
	logger    *zap.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(url, queue string, prefetch int, handler RecordHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := newConsumer(queue, prefetch, handler, logger)
	c.conn, c.channel = conn, channel
	return c, nil
}

func newConsumer(queue string, prefetch int, handler RecordHandler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		queue:    queue,
		prefetch: prefetch,
		handler:  handler,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start declares the queue and starts consuming in the background.
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	if c.prefetch > 0 {
		if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set qos: %w", err)
		}
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	c.logger.Info("rabbitmq.consumer_started",
		zap.String("queue", c.queue),
		zap.Int("prefetch", c.prefetch),
	)

	go c.consume(ctx, msgs)
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("rabbitmq.channel_closed", zap.String("queue", c.queue))
				return
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery acks processed records, rejects undecodable ones and
// requeues failures once. A record that fails again on redelivery is
// rejected so it can dead-letter instead of looping.
func (c *Consumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var raw model.RawRecord
	if err := json.Unmarshal(msg.Body, &raw); err != nil {
		c.logger.Error("rabbitmq.unmarshal_failed", zap.String("queue", c.queue), zap.Error(err))
		c.settle(msg.Nack(false, false), "reject")
		return
	}
	if err := raw.Validate(); err != nil {
		c.logger.Error("rabbitmq.invalid_record",
			zap.String("source_file", raw.SourceFile),
			zap.Int("row_index", raw.RowIndex),
			zap.Error(err))
		c.settle(msg.Nack(false, false), "reject")
		return
	}

	if err := c.handler.HandleRecord(ctx, raw); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("rabbitmq.handle_failed",
			zap.String("source_file", raw.SourceFile),
			zap.Int("row_index", raw.RowIndex),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if requeue {
			c.settle(msg.Nack(false, true), "requeue")
		} else {
			c.settle(msg.Nack(false, false), "reject")
		}
		return
	}

	c.settle(msg.Ack(false), "ack")
}

func (c *Consumer) settle(err error, result string) {
	if err != nil {
		c.logger.Error("rabbitmq.settle_failed", zap.String("result", result), zap.Error(err))
		metrics.IncError("rabbitmq", "settle_failed")
		return
	}
	metrics.IncQueueMessage(c.queue, result)
}

// Close stops consuming and closes the channel and connection.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
