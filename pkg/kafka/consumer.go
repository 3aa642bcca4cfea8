// Package kafka provides the segmentio/kafka-go clients the builder uses: a
// consumer that drains a record topic for one build, and a producer that
// announces completed builds.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads a topic as part of a consumer group. Offsets are only
// committed by Commit, after the build that consumed them succeeded.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	pending []kafka.Message
}

// NewConsumer creates a Consumer for the given topic.
func NewConsumer(cfg config.KafkaConfig, topic string) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader: r,
		logger: slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Drain fetches messages and passes each to handler until no message
// arrives for idle, or ctx is done. A handler error stops the drain.
func (c *Consumer) Drain(ctx context.Context, idle time.Duration, handler MessageHandler) (int, error) {
	c.logger.Info("draining topic", "idle_timeout", idle)
	n := 0
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, idle)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return n, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("topic drained", "messages", n)
				return n, nil
			}
			return n, fmt.Errorf("fetching message: %w", err)
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			return n, err
		}
		c.pending = append(c.pending, msg)
		n++
	}
}

// Commit commits the offsets of every message drained so far.
func (c *Consumer) Commit(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, c.pending...); err != nil {
		return fmt.Errorf("committing %d messages: %w", len(c.pending), err)
	}
	c.logger.Info("offsets committed", "messages", len(c.pending))
	c.pending = c.pending[:0]
	return nil
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
